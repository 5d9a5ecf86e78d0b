package reservations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/codr1/courtside/internal/db"
	"github.com/codr1/courtside/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("court already reserved for that time")
)

// Store is the SQLite-backed reservation book. It doubles as a status Source.
type Store struct {
	db *db.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

func (s *Store) ReservationsForDate(ctx context.Context, courtID int64, date string) ([]models.Reservation, error) {
	params := db.ListReservationsForDateParams{CourtID: courtID, ReservationDate: date}
	rows, err := s.db.Queries.ListReservationsForDate(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list reservations for court %d on %s: %w", courtID, date, err)
	}
	players, err := s.db.Queries.ListReservationPlayersForDate(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list reservation players for court %d on %s: %w", courtID, date, err)
	}

	byReservation := make(map[string][]models.Player, len(rows))
	for _, player := range players {
		byReservation[player.ReservationID] = append(byReservation[player.ReservationID], models.Player{
			Name:    player.Name,
			IsGuest: player.IsGuest,
		})
	}

	out := make([]models.Reservation, 0, len(rows))
	for _, row := range rows {
		out = append(out, reservationFromRow(row, byReservation[row.ID]))
	}
	return out, nil
}

// Create stores a reservation and its players. Active reservations may not
// overlap another active reservation on the same court and day.
func (s *Store) Create(ctx context.Context, reservation models.Reservation) (models.Reservation, error) {
	if reservation.ID == "" {
		reservation.ID = uuid.NewString()
	}
	if reservation.Players == nil {
		reservation.Players = []models.Player{}
	}
	if err := reservation.Validate(); err != nil {
		return models.Reservation{}, err
	}

	err := s.db.RunInTx(ctx, func(tx *db.DB) error {
		if _, err := tx.Queries.GetCourt(ctx, reservation.CourtID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("court %d: %w", reservation.CourtID, ErrNotFound)
			}
			return fmt.Errorf("get court %d: %w", reservation.CourtID, err)
		}

		if reservation.Status.IsActive() {
			if err := checkOverlap(ctx, tx.Queries, reservation); err != nil {
				return err
			}
		}

		_, err := tx.Queries.CreateReservation(ctx, db.CreateReservationParams{
			ID:              reservation.ID,
			CourtID:         reservation.CourtID,
			ReservationDate: reservation.Date,
			TimeSlot:        int64(reservation.TimeSlot),
			EndTimeSlot:     int64(reservation.EndTimeSlot),
			Status:          string(reservation.Status),
			BlockReason:     nullString(reservation.BlockReason),
			BlockNotes:      nullString(reservation.BlockNotes),
		})
		if err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}

		for i, player := range reservation.Players {
			err := tx.Queries.AddReservationPlayer(ctx, db.AddReservationPlayerParams{
				ReservationID: reservation.ID,
				Position:      int64(i),
				Name:          strings.TrimSpace(player.Name),
				IsGuest:       player.IsGuest,
			})
			if err != nil {
				return fmt.Errorf("add reservation player: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return models.Reservation{}, err
	}
	return reservation, nil
}

func (s *Store) Get(ctx context.Context, id string) (models.Reservation, error) {
	return getReservation(ctx, s.db.Queries, id)
}

// UpdateStatus moves a reservation to a new status. Reactivating a cancelled
// or no-show booking is checked for overlaps like a new booking.
func (s *Store) UpdateStatus(ctx context.Context, id string, status models.ReservationStatus) (models.Reservation, error) {
	if !status.Valid() {
		return models.Reservation{}, fmt.Errorf("%w: unknown status %q", models.ErrInvalidReservation, status)
	}

	var updated models.Reservation
	err := s.db.RunInTx(ctx, func(tx *db.DB) error {
		current, err := getReservation(ctx, tx.Queries, id)
		if err != nil {
			return err
		}
		if status == models.StatusBlocked && !current.IsBlocked() {
			return fmt.Errorf("%w: create a block instead of converting a booking", models.ErrInvalidReservation)
		}
		if current.IsBlocked() && status != models.StatusBlocked && status.IsActive() {
			return fmt.Errorf("%w: a block can only be cancelled", models.ErrInvalidReservation)
		}
		if status.IsActive() && !current.Status.IsActive() {
			if err := checkOverlap(ctx, tx.Queries, current); err != nil {
				return err
			}
		}

		if _, err := tx.Queries.UpdateReservationStatus(ctx, db.UpdateReservationStatusParams{
			Status: string(status),
			ID:     id,
		}); err != nil {
			return fmt.Errorf("update reservation status: %w", err)
		}
		current.Status = status
		updated = current
		return nil
	})
	if err != nil {
		return models.Reservation{}, err
	}
	return updated, nil
}

func (s *Store) CreateCourt(ctx context.Context, court models.Court) (models.Court, error) {
	if court.CourtNumber <= 0 {
		return models.Court{}, fmt.Errorf("%w: court number must be positive", models.ErrInvalidReservation)
	}
	row, err := s.db.Queries.CreateCourt(ctx, db.CreateCourtParams{
		Name:        strings.TrimSpace(court.Name),
		CourtNumber: court.CourtNumber,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return models.Court{}, fmt.Errorf("court number %d: %w", court.CourtNumber, ErrConflict)
		}
		return models.Court{}, fmt.Errorf("create court: %w", err)
	}
	return courtFromRow(row), nil
}

func (s *Store) GetCourt(ctx context.Context, id int64) (models.Court, error) {
	row, err := s.db.Queries.GetCourt(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Court{}, fmt.Errorf("court %d: %w", id, ErrNotFound)
		}
		return models.Court{}, fmt.Errorf("get court %d: %w", id, err)
	}
	return courtFromRow(row), nil
}

func (s *Store) ListCourts(ctx context.Context) ([]models.Court, error) {
	rows, err := s.db.Queries.ListCourts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courts: %w", err)
	}
	courts := make([]models.Court, 0, len(rows))
	for _, row := range rows {
		courts = append(courts, courtFromRow(row))
	}
	return courts, nil
}

// PurgeBefore deletes every reservation dated before date (YYYY-MM-DD).
func (s *Store) PurgeBefore(ctx context.Context, date string) (int64, error) {
	deleted, err := s.db.Queries.DeleteReservationsBefore(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("purge reservations before %s: %w", date, err)
	}
	return deleted, nil
}

func checkOverlap(ctx context.Context, q *db.Queries, reservation models.Reservation) error {
	count, err := q.CountOverlappingReservations(ctx, db.CountOverlappingReservationsParams{
		CourtID:         reservation.CourtID,
		ReservationDate: reservation.Date,
		TimeSlot:        int64(reservation.TimeSlot),
		EndTimeSlot:     int64(reservation.EndTimeSlot),
		ExcludeID:       reservation.ID,
	})
	if err != nil {
		return fmt.Errorf("check overlapping reservations: %w", err)
	}
	if count > 0 {
		return ErrConflict
	}
	return nil
}

func getReservation(ctx context.Context, q *db.Queries, id string) (models.Reservation, error) {
	row, err := q.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Reservation{}, fmt.Errorf("reservation %s: %w", id, ErrNotFound)
		}
		return models.Reservation{}, fmt.Errorf("get reservation %s: %w", id, err)
	}
	rows, err := q.ListReservationPlayers(ctx, id)
	if err != nil {
		return models.Reservation{}, fmt.Errorf("list reservation players: %w", err)
	}
	players := make([]models.Player, 0, len(rows))
	for _, player := range rows {
		players = append(players, models.Player{Name: player.Name, IsGuest: player.IsGuest})
	}
	return reservationFromRow(row, players), nil
}

func reservationFromRow(row db.Reservation, players []models.Player) models.Reservation {
	if players == nil {
		players = []models.Player{}
	}
	return models.Reservation{
		ID:          row.ID,
		CourtID:     row.CourtID,
		Date:        row.ReservationDate,
		TimeSlot:    int(row.TimeSlot),
		EndTimeSlot: int(row.EndTimeSlot),
		Status:      models.ReservationStatus(row.Status),
		Players:     players,
		BlockReason: row.BlockReason.String,
		BlockNotes:  row.BlockNotes.String,
	}
}

func courtFromRow(row db.Court) models.Court {
	return models.Court{ID: row.ID, Name: row.Name, CourtNumber: row.CourtNumber}
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	return sql.NullString{String: value, Valid: value != ""}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
