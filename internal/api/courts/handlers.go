// internal/api/courts/handlers.go
package courts

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/api/apiutil"
	"github.com/codr1/courtside/internal/courtstatus"
	"github.com/codr1/courtside/internal/models"
	"github.com/codr1/courtside/internal/reservations"
)

var (
	store       *reservations.Store
	manager     *courtstatus.Manager
	queriesOnce sync.Once
)

const courtsQueryTimeout = 5 * time.Second

type courtRequest struct {
	Name        string `json:"name"`
	CourtNumber int64  `json:"courtNumber"`
}

type courtsResponse struct {
	Courts []models.Court `json:"courts"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(s *reservations.Store, m *courtstatus.Manager) {
	if s == nil {
		return
	}
	queriesOnce.Do(func() {
		store = s
		manager = m
	})
}

// GET /api/v1/courts
func HandleCourtsList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Reservation store not initialized")
		apiutil.WriteError(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	courts, err := store.ListCourts(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list courts")
		apiutil.WriteError(w, r, http.StatusInternalServerError, "Failed to list courts")
		return
	}
	if courts == nil {
		courts = []models.Court{}
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, courtsResponse{Courts: courts}); err != nil {
		logger.Error().Err(err).Msg("Failed to write courts response")
	}
}

// POST /api/v1/courts
func HandleCourtCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Reservation store not initialized")
		apiutil.WriteError(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var req courtRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	court, err := store.CreateCourt(ctx, models.Court{Name: req.Name, CourtNumber: req.CourtNumber})
	switch {
	case errors.Is(err, models.ErrInvalidReservation):
		apiutil.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, reservations.ErrConflict):
		apiutil.WriteError(w, r, http.StatusConflict, "Court number already exists")
		return
	case err != nil:
		logger.Error().Err(err).Msg("Failed to create court")
		apiutil.WriteError(w, r, http.StatusInternalServerError, "Failed to create court")
		return
	}

	if manager != nil {
		poller := manager.Add(court)
		if err := poller.Start(ctx); err != nil {
			logger.Error().Err(err).Int64("court_id", court.ID).Msg("Failed to start court status polling")
		}
	}

	logger.Info().Int64("court_id", court.ID).Int64("court_number", court.CourtNumber).Msg("Court created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, court); err != nil {
		logger.Error().Err(err).Msg("Failed to write court response")
	}
}
