package models

import (
	"errors"
	"testing"
)

func validReservation() Reservation {
	return Reservation{
		ID:          "res-1",
		CourtID:     1,
		Date:        "2025-03-14",
		TimeSlot:    14,
		EndTimeSlot: 16,
		Status:      StatusConfirmed,
		Players:     []Player{{Name: "Helen Sundiam"}},
	}
}

func TestReservationStatusIsActive(t *testing.T) {
	tests := []struct {
		status ReservationStatus
		want   bool
	}{
		{StatusConfirmed, true},
		{StatusPending, true},
		{StatusBlocked, true},
		{StatusCancelled, false},
		{StatusNoShow, false},
	}

	for _, test := range tests {
		t.Run(string(test.status), func(t *testing.T) {
			if got := test.status.IsActive(); got != test.want {
				t.Fatalf("IsActive(%q) = %t, want %t", test.status, got, test.want)
			}
		})
	}
}

func TestParseReservationStatus(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    ReservationStatus
		wantErr bool
	}{
		{name: "canonical", raw: "confirmed", want: StatusConfirmed},
		{name: "upper_case", raw: "BLOCKED", want: StatusBlocked},
		{name: "underscore_no_show", raw: "no_show", want: StatusNoShow},
		{name: "american_cancel", raw: "canceled", want: StatusCancelled},
		{name: "padded", raw: "  pending ", want: StatusPending},
		{name: "unknown", raw: "finished", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := ParseReservationStatus(test.raw)
			if test.wantErr {
				if !errors.Is(err, ErrInvalidReservation) {
					t.Fatalf("ParseReservationStatus(%q) error = %v, want ErrInvalidReservation", test.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseReservationStatus(%q) error = %v", test.raw, err)
			}
			if got != test.want {
				t.Fatalf("ParseReservationStatus(%q) = %q, want %q", test.raw, got, test.want)
			}
		})
	}
}

func TestReservationCovers(t *testing.T) {
	res := validReservation()
	for hour, want := range map[int]bool{13: false, 14: true, 15: true, 16: false} {
		if got := res.Covers(hour); got != want {
			t.Fatalf("Covers(%d) = %t, want %t", hour, got, want)
		}
	}
}

func TestReservationValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Reservation)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Reservation) {}},
		{name: "missing_court", mutate: func(r *Reservation) { r.CourtID = 0 }, wantErr: true},
		{name: "bad_date", mutate: func(r *Reservation) { r.Date = "03/14/2025" }, wantErr: true},
		{name: "negative_start", mutate: func(r *Reservation) { r.TimeSlot = -1 }, wantErr: true},
		{name: "end_before_start", mutate: func(r *Reservation) { r.EndTimeSlot = 14 }, wantErr: true},
		{name: "end_past_midnight", mutate: func(r *Reservation) { r.EndTimeSlot = 25 }, wantErr: true},
		{name: "ends_at_midnight", mutate: func(r *Reservation) { r.TimeSlot = 22; r.EndTimeSlot = 24 }},
		{name: "unknown_status", mutate: func(r *Reservation) { r.Status = "done" }, wantErr: true},
		{name: "block_notes_on_booking", mutate: func(r *Reservation) { r.BlockNotes = "resurfacing" }, wantErr: true},
		{name: "blocked_with_reason", mutate: func(r *Reservation) {
			r.Status = StatusBlocked
			r.BlockReason = "maintenance"
			r.Players = nil
		}},
		{name: "blank_player", mutate: func(r *Reservation) { r.Players = append(r.Players, Player{Name: " "}) }, wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			res := validReservation()
			test.mutate(&res)
			err := res.Validate()
			if test.wantErr && !errors.Is(err, ErrInvalidReservation) {
				t.Fatalf("Validate() error = %v, want ErrInvalidReservation", err)
			}
			if !test.wantErr && err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
		})
	}
}

func TestCourtLabel(t *testing.T) {
	if got := (Court{CourtNumber: 3}).Label(); got != "Court 3" {
		t.Fatalf("Label() = %q, want Court 3", got)
	}
	if got := (Court{Name: " Stadium ", CourtNumber: 1}).Label(); got != "Stadium" {
		t.Fatalf("Label() = %q, want Stadium", got)
	}
}
