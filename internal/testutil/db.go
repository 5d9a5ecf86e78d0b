package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/codr1/courtside/internal/db"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// SeedCourt inserts a court and returns its ID.
func SeedCourt(t *testing.T, database *db.DB, number int64, name string) int64 {
	t.Helper()

	court, err := database.Queries.CreateCourt(context.Background(), db.CreateCourtParams{
		Name:        name,
		CourtNumber: number,
	})
	if err != nil {
		t.Fatalf("seed court %d: %v", number, err)
	}
	return court.ID
}

// SeedReservation inserts a reservation row with the given players.
func SeedReservation(t *testing.T, database *db.DB, params db.CreateReservationParams, players ...string) {
	t.Helper()

	ctx := context.Background()
	if params.Status == "" {
		params.Status = "confirmed"
	}
	if _, err := database.Queries.CreateReservation(ctx, params); err != nil {
		t.Fatalf("seed reservation %s: %v", params.ID, err)
	}
	for i, name := range players {
		err := database.Queries.AddReservationPlayer(ctx, db.AddReservationPlayerParams{
			ReservationID: params.ID,
			Position:      int64(i),
			Name:          name,
		})
		if err != nil {
			t.Fatalf("seed player %q: %v", name, err)
		}
	}
}

// NullString wraps a value, treating "" as NULL.
func NullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
