package reservations

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/models"
)

var (
	ErrUpstreamRejected = errors.New("reservations api reported failure")
	ErrMalformedBody    = errors.New("malformed reservations payload")
)

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

type nestedData struct {
	Reservations json.RawMessage `json:"reservations"`
}

type wireReservation struct {
	ID           json.RawMessage   `json:"id"`
	CourtID      *int64            `json:"courtId"`
	CourtIDSnake *int64            `json:"court_id"`
	Date         string            `json:"date"`
	TimeSlot     *int              `json:"timeSlot"`
	EndTimeSlot  *int              `json:"endTimeSlot"`
	Status       string            `json:"status"`
	Players      []json.RawMessage `json:"players"`
	BlockReason  string            `json:"blockReason"`
	BlockNotes   string            `json:"blockNotes"`
}

// Normalize decodes any of the tolerated response shapes into reservations:
//
//	[ ... ]
//	{"success": true, "data": [ ... ]}
//	{"success": true, "data": {"reservations": [ ... ]}}
//
// Records that cannot describe an occupancy are skipped.
func Normalize(body []byte) ([]models.Reservation, error) {
	items, err := unwrap(bytes.TrimSpace(body))
	if err != nil {
		return nil, err
	}

	out := make([]models.Reservation, 0, len(items))
	for i, item := range items {
		reservation, err := normalizeRecord(item)
		if err != nil {
			log.Debug().Err(err).Int("index", i).Msg("Skipping reservation record")
			continue
		}
		out = append(out, reservation)
	}
	return out, nil
}

// NormalizeFor is Normalize restricted to one court and date. Records that do
// not carry those fields are assumed to match.
func NormalizeFor(body []byte, courtID int64, date string) ([]models.Reservation, error) {
	all, err := Normalize(body)
	if err != nil {
		return nil, err
	}

	filtered := all[:0]
	for _, reservation := range all {
		if reservation.CourtID != 0 && reservation.CourtID != courtID {
			continue
		}
		if reservation.Date != "" && reservation.Date != date {
			continue
		}
		if reservation.CourtID == 0 {
			reservation.CourtID = courtID
		}
		if reservation.Date == "" {
			reservation.Date = date
		}
		filtered = append(filtered, reservation)
	}
	return filtered, nil
}

func unwrap(body []byte) ([]json.RawMessage, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedBody)
	}

	var items []json.RawMessage
	if body[0] == '[' {
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		return items, nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if env.Success != nil && !*env.Success {
		reason := env.Error
		if reason == "" {
			reason = env.Message
		}
		if reason == "" {
			reason = "no reason given"
		}
		return nil, fmt.Errorf("%w: %s", ErrUpstreamRejected, reason)
	}

	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	if data[0] == '[' {
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		return items, nil
	}

	var nested nestedData
	if err := json.Unmarshal(data, &nested); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if len(nested.Reservations) == 0 || bytes.Equal(nested.Reservations, []byte("null")) {
		return nil, nil
	}
	if err := json.Unmarshal(nested.Reservations, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return items, nil
}

func normalizeRecord(raw json.RawMessage) (models.Reservation, error) {
	var wire wireReservation
	if err := json.Unmarshal(raw, &wire); err != nil {
		return models.Reservation{}, err
	}
	if wire.TimeSlot == nil || wire.EndTimeSlot == nil {
		return models.Reservation{}, errors.New("missing time slots")
	}
	if *wire.EndTimeSlot <= *wire.TimeSlot {
		return models.Reservation{}, errors.New("end time slot not after start")
	}
	status := models.StatusConfirmed
	if strings.TrimSpace(wire.Status) != "" {
		parsed, err := models.ParseReservationStatus(wire.Status)
		if err != nil {
			return models.Reservation{}, err
		}
		status = parsed
	}

	reservation := models.Reservation{
		ID:          opaqueID(wire.ID),
		Date:        strings.TrimSpace(wire.Date),
		TimeSlot:    *wire.TimeSlot,
		EndTimeSlot: *wire.EndTimeSlot,
		Status:      status,
		Players:     normalizePlayers(wire.Players),
	}
	switch {
	case wire.CourtID != nil:
		reservation.CourtID = *wire.CourtID
	case wire.CourtIDSnake != nil:
		reservation.CourtID = *wire.CourtIDSnake
	}
	if status == models.StatusBlocked {
		reservation.BlockReason = wire.BlockReason
		reservation.BlockNotes = wire.BlockNotes
	}
	return reservation, nil
}

// opaqueID renders string and numeric identifiers the same way.
func opaqueID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return string(raw)
}

func normalizePlayers(raw []json.RawMessage) []models.Player {
	players := make([]models.Player, 0, len(raw))
	for _, entry := range raw {
		entry = bytes.TrimSpace(entry)
		if len(entry) == 0 {
			continue
		}
		switch entry[0] {
		case '"':
			var name string
			if err := json.Unmarshal(entry, &name); err != nil {
				continue
			}
			if name = strings.TrimSpace(name); name != "" {
				players = append(players, models.Player{Name: name})
			}
		case '{':
			var player models.Player
			if err := json.Unmarshal(entry, &player); err != nil {
				continue
			}
			player.Name = strings.TrimSpace(player.Name)
			if player.Name != "" {
				players = append(players, player)
			}
		}
	}
	return players
}

// Envelope is the response shape served by this module's own API.
type Envelope struct {
	Success bool         `json:"success"`
	Data    EnvelopeData `json:"data"`
}

type EnvelopeData struct {
	Reservations []models.Reservation `json:"reservations"`
}

func NewEnvelope(reservations []models.Reservation) Envelope {
	if reservations == nil {
		reservations = []models.Reservation{}
	}
	return Envelope{Success: true, Data: EnvelopeData{Reservations: reservations}}
}
