package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/codr1/courtside/internal/courtstatus"
)

func TestDeriveTime(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	now := time.Date(2025, time.June, 2, 14, 45, 0, 0, loc)

	tests := []struct {
		name    string
		date    string
		clock   string
		want    time.Time
		wantErr bool
	}{
		{name: "defaults_to_now", want: time.Date(2025, time.June, 2, 14, 45, 0, 0, loc)},
		{name: "date_override", date: "2025-06-10", want: time.Date(2025, time.June, 10, 14, 45, 0, 0, loc)},
		{name: "clock_override", clock: "06:30", want: time.Date(2025, time.June, 2, 6, 30, 0, 0, loc)},
		{name: "both", date: "2025-07-04", clock: "21:00", want: time.Date(2025, time.July, 4, 21, 0, 0, 0, loc)},
		{name: "bad_date", date: "07/04/2025", wantErr: true},
		{name: "bad_clock", clock: "9pm", wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := deriveTime(now, loc, test.date, test.clock)
			if test.wantErr {
				if err == nil {
					t.Fatal("deriveTime() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("deriveTime() error = %v", err)
			}
			if !got.Equal(test.want) {
				t.Fatalf("deriveTime() = %v, want %v", got, test.want)
			}
		})
	}
}

func TestPrintStatus(t *testing.T) {
	status := courtstatus.DerivedStatus{
		FacilityStatus: courtstatus.FacilityOpen,
		Current: courtstatus.SlotInfo{
			Exists:    true,
			TimeRange: "9:00 AM - 11:00 AM",
			Players: []courtstatus.PlayerInfo{
				{Name: "Ana Ruiz"},
				{Name: "Sam Lee", IsGuest: true},
			},
		},
		Next: courtstatus.SlotInfo{
			Exists:    true,
			TimeRange: "12:00 PM - 1:00 PM",
			IsBlocked: true,
			BlockInfo: &courtstatus.BlockInfo{Reason: "maintenance", Notes: "Resurfacing"},
		},
	}

	var buf bytes.Buffer
	printStatus(&buf, "Center Court", status)
	out := buf.String()

	for _, want := range []string{
		"Center Court [open]",
		"now:  9:00 AM - 11:00 AM  Ana Ruiz, Sam Lee (guest)",
		"next: 12:00 PM - 1:00 PM  blocked: maintenance (Resurfacing)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestParseCourtIDs(t *testing.T) {
	ids, err := parseCourtIDs([]string{"1", "12"})
	if err != nil || len(ids) != 2 || ids[1] != 12 {
		t.Fatalf("parseCourtIDs() = (%v, %v)", ids, err)
	}
	if _, err := parseCourtIDs([]string{"0"}); err == nil {
		t.Fatal("parseCourtIDs() should reject 0")
	}
}
