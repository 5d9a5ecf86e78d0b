package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Court struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	CourtNumber int64  `json:"court_number"`
	CreatedAt   string `json:"created_at"`
}

type Reservation struct {
	ID              string         `json:"id"`
	CourtID         int64          `json:"court_id"`
	ReservationDate string         `json:"reservation_date"`
	TimeSlot        int64          `json:"time_slot"`
	EndTimeSlot     int64          `json:"end_time_slot"`
	Status          string         `json:"status"`
	BlockReason     sql.NullString `json:"block_reason"`
	BlockNotes      sql.NullString `json:"block_notes"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
}

type ReservationPlayer struct {
	ReservationID string `json:"reservation_id"`
	Position      int64  `json:"position"`
	Name          string `json:"name"`
	IsGuest       bool   `json:"is_guest"`
}

const createCourt = `-- name: CreateCourt :one
INSERT INTO courts (name, court_number)
VALUES (?, ?)
RETURNING id, name, court_number, created_at
`

type CreateCourtParams struct {
	Name        string
	CourtNumber int64
}

func (q *Queries) CreateCourt(ctx context.Context, arg CreateCourtParams) (Court, error) {
	row := q.db.QueryRowContext(ctx, createCourt, arg.Name, arg.CourtNumber)
	var i Court
	err := row.Scan(&i.ID, &i.Name, &i.CourtNumber, &i.CreatedAt)
	return i, err
}

const getCourt = `-- name: GetCourt :one
SELECT id, name, court_number, created_at
FROM courts
WHERE id = ?
`

func (q *Queries) GetCourt(ctx context.Context, id int64) (Court, error) {
	row := q.db.QueryRowContext(ctx, getCourt, id)
	var i Court
	err := row.Scan(&i.ID, &i.Name, &i.CourtNumber, &i.CreatedAt)
	return i, err
}

const listCourts = `-- name: ListCourts :many
SELECT id, name, court_number, created_at
FROM courts
ORDER BY court_number, id
`

func (q *Queries) ListCourts(ctx context.Context) ([]Court, error) {
	rows, err := q.db.QueryContext(ctx, listCourts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Court
	for rows.Next() {
		var i Court
		if err := rows.Scan(&i.ID, &i.Name, &i.CourtNumber, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createReservation = `-- name: CreateReservation :one
INSERT INTO reservations (
    id, court_id, reservation_date, time_slot, end_time_slot, status, block_reason, block_notes
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, court_id, reservation_date, time_slot, end_time_slot, status, block_reason, block_notes, created_at, updated_at
`

type CreateReservationParams struct {
	ID              string
	CourtID         int64
	ReservationDate string
	TimeSlot        int64
	EndTimeSlot     int64
	Status          string
	BlockReason     sql.NullString
	BlockNotes      sql.NullString
}

func (q *Queries) CreateReservation(ctx context.Context, arg CreateReservationParams) (Reservation, error) {
	row := q.db.QueryRowContext(ctx, createReservation,
		arg.ID,
		arg.CourtID,
		arg.ReservationDate,
		arg.TimeSlot,
		arg.EndTimeSlot,
		arg.Status,
		arg.BlockReason,
		arg.BlockNotes,
	)
	return scanReservation(row)
}

const addReservationPlayer = `-- name: AddReservationPlayer :exec
INSERT INTO reservation_players (reservation_id, position, name, is_guest)
VALUES (?, ?, ?, ?)
`

type AddReservationPlayerParams struct {
	ReservationID string
	Position      int64
	Name          string
	IsGuest       bool
}

func (q *Queries) AddReservationPlayer(ctx context.Context, arg AddReservationPlayerParams) error {
	_, err := q.db.ExecContext(ctx, addReservationPlayer, arg.ReservationID, arg.Position, arg.Name, arg.IsGuest)
	return err
}

const getReservation = `-- name: GetReservation :one
SELECT id, court_id, reservation_date, time_slot, end_time_slot, status, block_reason, block_notes, created_at, updated_at
FROM reservations
WHERE id = ?
`

func (q *Queries) GetReservation(ctx context.Context, id string) (Reservation, error) {
	return scanReservation(q.db.QueryRowContext(ctx, getReservation, id))
}

const listReservationsForDate = `-- name: ListReservationsForDate :many
SELECT id, court_id, reservation_date, time_slot, end_time_slot, status, block_reason, block_notes, created_at, updated_at
FROM reservations
WHERE court_id = ? AND reservation_date = ?
ORDER BY time_slot, id
`

type ListReservationsForDateParams struct {
	CourtID         int64
	ReservationDate string
}

func (q *Queries) ListReservationsForDate(ctx context.Context, arg ListReservationsForDateParams) ([]Reservation, error) {
	rows, err := q.db.QueryContext(ctx, listReservationsForDate, arg.CourtID, arg.ReservationDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Reservation
	for rows.Next() {
		i, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listReservationPlayersForDate = `-- name: ListReservationPlayersForDate :many
SELECT rp.reservation_id, rp.position, rp.name, rp.is_guest
FROM reservation_players rp
JOIN reservations r ON r.id = rp.reservation_id
WHERE r.court_id = ? AND r.reservation_date = ?
ORDER BY rp.reservation_id, rp.position
`

func (q *Queries) ListReservationPlayersForDate(ctx context.Context, arg ListReservationsForDateParams) ([]ReservationPlayer, error) {
	rows, err := q.db.QueryContext(ctx, listReservationPlayersForDate, arg.CourtID, arg.ReservationDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ReservationPlayer
	for rows.Next() {
		var i ReservationPlayer
		if err := rows.Scan(&i.ReservationID, &i.Position, &i.Name, &i.IsGuest); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listReservationPlayers = `-- name: ListReservationPlayers :many
SELECT reservation_id, position, name, is_guest
FROM reservation_players
WHERE reservation_id = ?
ORDER BY position
`

func (q *Queries) ListReservationPlayers(ctx context.Context, reservationID string) ([]ReservationPlayer, error) {
	rows, err := q.db.QueryContext(ctx, listReservationPlayers, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ReservationPlayer
	for rows.Next() {
		var i ReservationPlayer
		if err := rows.Scan(&i.ReservationID, &i.Position, &i.Name, &i.IsGuest); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateReservationStatus = `-- name: UpdateReservationStatus :execrows
UPDATE reservations
SET status = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

type UpdateReservationStatusParams struct {
	Status string
	ID     string
}

func (q *Queries) UpdateReservationStatus(ctx context.Context, arg UpdateReservationStatusParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateReservationStatus, arg.Status, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Only active bookings occupy a slot.
const countOverlappingReservations = `-- name: CountOverlappingReservations :one
SELECT COUNT(*)
FROM reservations
WHERE court_id = ?
  AND reservation_date = ?
  AND status IN ('confirmed', 'pending', 'blocked')
  AND time_slot < ?
  AND end_time_slot > ?
  AND id != ?
`

type CountOverlappingReservationsParams struct {
	CourtID         int64
	ReservationDate string
	EndTimeSlot     int64
	TimeSlot        int64
	ExcludeID       string
}

func (q *Queries) CountOverlappingReservations(ctx context.Context, arg CountOverlappingReservationsParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, countOverlappingReservations,
		arg.CourtID,
		arg.ReservationDate,
		arg.EndTimeSlot,
		arg.TimeSlot,
		arg.ExcludeID,
	)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const deleteReservationsBefore = `-- name: DeleteReservationsBefore :execrows
DELETE FROM reservations
WHERE reservation_date < ?
`

func (q *Queries) DeleteReservationsBefore(ctx context.Context, date string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteReservationsBefore, date)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(row rowScanner) (Reservation, error) {
	var i Reservation
	err := row.Scan(
		&i.ID,
		&i.CourtID,
		&i.ReservationDate,
		&i.TimeSlot,
		&i.EndTimeSlot,
		&i.Status,
		&i.BlockReason,
		&i.BlockNotes,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
