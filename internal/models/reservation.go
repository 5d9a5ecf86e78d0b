// internal/models/reservation.go
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of a reservation's calendar date.
const DateLayout = "2006-01-02"

const maxEndTimeSlot = 24

var ErrInvalidReservation = errors.New("invalid reservation")

type ReservationStatus string

const (
	StatusConfirmed ReservationStatus = "confirmed"
	StatusPending   ReservationStatus = "pending"
	StatusCancelled ReservationStatus = "cancelled"
	StatusNoShow    ReservationStatus = "no-show"
	StatusBlocked   ReservationStatus = "blocked"
)

func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusConfirmed, StatusPending, StatusCancelled, StatusNoShow, StatusBlocked:
		return true
	default:
		return false
	}
}

// IsActive reports whether a reservation with this status still occupies the court.
func (s ReservationStatus) IsActive() bool {
	return s != StatusCancelled && s != StatusNoShow
}

// ParseReservationStatus accepts the canonical values plus the spellings older
// clients send ("noshow", "no_show", upper case).
func ParseReservationStatus(raw string) (ReservationStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch normalized {
	case "no_show", "noshow":
		normalized = string(StatusNoShow)
	case "canceled":
		normalized = string(StatusCancelled)
	}
	status := ReservationStatus(normalized)
	if !status.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidReservation, raw)
	}
	return status, nil
}

type Player struct {
	Name    string `json:"name" msgpack:"name"`
	IsGuest bool   `json:"isGuest" msgpack:"isGuest"`
}

// Reservation is one court booking for a single business-local day. Occupancy is
// the half-open hour range [TimeSlot, EndTimeSlot).
type Reservation struct {
	ID          string            `json:"id"`
	CourtID     int64             `json:"courtId"`
	Date        string            `json:"date"`
	TimeSlot    int               `json:"timeSlot"`
	EndTimeSlot int               `json:"endTimeSlot"`
	Status      ReservationStatus `json:"status"`
	Players     []Player          `json:"players"`
	BlockReason string            `json:"blockReason,omitempty"`
	BlockNotes  string            `json:"blockNotes,omitempty"`
}

func (r Reservation) Covers(hour int) bool {
	return r.TimeSlot <= hour && hour < r.EndTimeSlot
}

func (r Reservation) IsBlocked() bool {
	return r.Status == StatusBlocked
}

func (r Reservation) Validate() error {
	if r.CourtID <= 0 {
		return fmt.Errorf("%w: court_id must be a positive integer", ErrInvalidReservation)
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return fmt.Errorf("%w: date must be in YYYY-MM-DD format", ErrInvalidReservation)
	}
	if r.TimeSlot < 0 || r.TimeSlot > 23 {
		return fmt.Errorf("%w: time_slot must be between 0 and 23", ErrInvalidReservation)
	}
	if r.EndTimeSlot <= r.TimeSlot || r.EndTimeSlot > maxEndTimeSlot {
		return fmt.Errorf("%w: end_time_slot must be after time_slot and at most %d", ErrInvalidReservation, maxEndTimeSlot)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidReservation, r.Status)
	}
	if !r.IsBlocked() && (r.BlockReason != "" || r.BlockNotes != "") {
		return fmt.Errorf("%w: block details are only allowed on blocked reservations", ErrInvalidReservation)
	}
	for i, player := range r.Players {
		if strings.TrimSpace(player.Name) == "" {
			return fmt.Errorf("%w: player %d has no name", ErrInvalidReservation, i+1)
		}
	}
	return nil
}

type Court struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	CourtNumber int64  `json:"courtNumber"`
}

func (c Court) Label() string {
	label := strings.TrimSpace(c.Name)
	if label == "" {
		return fmt.Sprintf("Court %d", c.CourtNumber)
	}
	return label
}
