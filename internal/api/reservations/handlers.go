// internal/api/reservations/handlers.go
package reservations

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/api/apiutil"
	"github.com/codr1/courtside/internal/api/htmx"
	"github.com/codr1/courtside/internal/courtstatus"
	"github.com/codr1/courtside/internal/models"
	"github.com/codr1/courtside/internal/request"
	"github.com/codr1/courtside/internal/reservations"
)

var (
	store       *reservations.Store
	manager     *courtstatus.Manager
	location    = time.UTC
	now         = time.Now
	queriesOnce sync.Once
)

const (
	reservationQueryTimeout = 5 * time.Second
	statusUpdatedEvent      = "court-status-updated"
	reservationIDPathKey    = "id"
)

type Deps struct {
	Store    *reservations.Store
	Manager  *courtstatus.Manager
	Location *time.Location
	Now      func() time.Time
}

type reservationRequest struct {
	CourtID     int64           `json:"courtId"`
	Date        string          `json:"date"`
	TimeSlot    *int            `json:"timeSlot"`
	EndTimeSlot *int            `json:"endTimeSlot"`
	Status      string          `json:"status"`
	Players     []models.Player `json:"players"`
	BlockReason string          `json:"blockReason"`
	BlockNotes  string          `json:"blockNotes"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(deps Deps) {
	if deps.Store == nil {
		return
	}
	queriesOnce.Do(func() {
		store = deps.Store
		manager = deps.Manager
		if deps.Location != nil {
			location = deps.Location
		}
		if deps.Now != nil {
			now = deps.Now
		}
	})
}

// GET /api/v1/reservations?court_id=&date=
func HandleReservationsList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Reservation store not initialized")
		apiutil.WriteError(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	courtID, err := apiutil.ParsePositiveInt64Field(r.URL.Query().Get("court_id"), "court_id")
	if err != nil {
		apiutil.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	date, ok := request.DateFromQuery(r, now(), location)
	if !ok {
		apiutil.WriteError(w, r, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reservationQueryTimeout)
	defer cancel()

	list, err := store.ReservationsForDate(ctx, courtID, date)
	if err != nil {
		logger.Error().Err(err).Int64("court_id", courtID).Str("date", date).Msg("Failed to list reservations")
		apiutil.WriteError(w, r, http.StatusInternalServerError, "Failed to list reservations")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, reservations.NewEnvelope(list)); err != nil {
		logger.Error().Err(err).Msg("Failed to write reservations response")
	}
}

// POST /api/v1/reservations
func HandleReservationCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Reservation store not initialized")
		apiutil.WriteError(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var req reservationRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	reservation, err := req.toReservation(now().In(location))
	if err != nil {
		apiutil.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reservationQueryTimeout)
	defer cancel()

	created, err := store.Create(ctx, reservation)
	if err != nil {
		writeStoreError(w, r, err, "Failed to create reservation")
		return
	}

	logger.Info().
		Str("reservation_id", created.ID).
		Int64("court_id", created.CourtID).
		Str("date", created.Date).
		Int("time_slot", created.TimeSlot).
		Int("end_time_slot", created.EndTimeSlot).
		Msg("Reservation created")

	refreshCourt(r.Context(), w, created)
	if err := apiutil.WriteJSON(w, http.StatusCreated, created); err != nil {
		logger.Error().Err(err).Msg("Failed to write reservation response")
	}
}

// PUT /api/v1/reservations/{id}/status
func HandleReservationStatusUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Reservation store not initialized")
		apiutil.WriteError(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	id := strings.TrimSpace(r.PathValue(reservationIDPathKey))
	if id == "" {
		apiutil.WriteError(w, r, http.StatusBadRequest, "Invalid reservation ID")
		return
	}

	var req statusRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	status, err := models.ParseReservationStatus(req.Status)
	if err != nil {
		apiutil.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reservationQueryTimeout)
	defer cancel()

	updated, err := store.UpdateStatus(ctx, id, status)
	if err != nil {
		writeStoreError(w, r, err, "Failed to update reservation")
		return
	}

	logger.Info().
		Str("reservation_id", updated.ID).
		Str("status", string(updated.Status)).
		Msg("Reservation status updated")

	refreshCourt(r.Context(), w, updated)
	if err := apiutil.WriteJSON(w, http.StatusOK, updated); err != nil {
		logger.Error().Err(err).Msg("Failed to write reservation response")
	}
}

func (req reservationRequest) toReservation(today time.Time) (models.Reservation, error) {
	if req.TimeSlot == nil || req.EndTimeSlot == nil {
		return models.Reservation{}, apiutil.FieldError{Field: "timeSlot", Reason: "and endTimeSlot are required"}
	}

	status := models.StatusConfirmed
	if strings.TrimSpace(req.Status) != "" {
		parsed, err := models.ParseReservationStatus(req.Status)
		if err != nil {
			return models.Reservation{}, err
		}
		status = parsed
	}

	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = today.Format(models.DateLayout)
	}

	return models.Reservation{
		CourtID:     req.CourtID,
		Date:        date,
		TimeSlot:    *req.TimeSlot,
		EndTimeSlot: *req.EndTimeSlot,
		Status:      status,
		Players:     req.Players,
		BlockReason: strings.TrimSpace(req.BlockReason),
		BlockNotes:  strings.TrimSpace(req.BlockNotes),
	}, nil
}

// refreshCourt re-derives the court's status when the change lands on today.
func refreshCourt(ctx context.Context, w http.ResponseWriter, reservation models.Reservation) {
	if manager == nil {
		return
	}
	if reservation.Date != now().In(location).Format(models.DateLayout) {
		return
	}
	poller, ok := manager.Poller(reservation.CourtID)
	if !ok {
		return
	}
	poller.Refresh(ctx)
	htmx.SetTrigger(w, statusUpdatedEvent)
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, models.ErrInvalidReservation):
		apiutil.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, reservations.ErrNotFound):
		apiutil.WriteError(w, r, http.StatusNotFound, "Not found")
	case errors.Is(err, reservations.ErrConflict):
		apiutil.WriteError(w, r, http.StatusConflict, reservations.ErrConflict.Error())
	default:
		apiutil.WriteHandlerError(w, r, apiutil.HandlerError{Status: http.StatusInternalServerError, Message: message, Err: err})
	}
}
