package reservations

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/codr1/courtside/internal/courtstatus"
	"github.com/codr1/courtside/internal/models"
	"github.com/codr1/courtside/internal/reservations"
	"github.com/codr1/courtside/internal/testutil"
)

var testNow = time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)

type noopScheduler struct{}

func (noopScheduler) AddIntervalJob(string, time.Duration, func()) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (noopScheduler) RemoveJob(uuid.UUID) error { return nil }

type fixedClock struct{}

func (fixedClock) Now() time.Time { return testNow }

func setupReservationsTest(t *testing.T) (*courtstatus.Manager, int64) {
	t.Helper()

	store = nil
	manager = nil
	location = time.UTC
	now = time.Now
	queriesOnce = sync.Once{}

	database := testutil.NewTestDB(t)
	courtID := testutil.SeedCourt(t, database, 1, "Center Court")
	s := reservations.NewStore(database)

	m := courtstatus.NewManager(courtstatus.PollerConfig{
		Source:    s,
		Scheduler: noopScheduler{},
		Location:  time.UTC,
		Clock:     fixedClock{},
	})
	m.Add(models.Court{ID: courtID, Name: "Center Court", CourtNumber: 1})
	t.Cleanup(func() {
		_ = m.Close()
	})

	InitHandlers(Deps{
		Store:    s,
		Manager:  m,
		Location: time.UTC,
		Now:      func() time.Time { return testNow },
	})
	return m, courtID
}

func postReservation(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	HandleReservationCreate(recorder, req)
	return recorder
}

func TestReservationCreateRefreshesStatus(t *testing.T) {
	m, courtID := setupReservationsTest(t)
	poller, _ := m.Poller(courtID)
	if before := poller.Refresh(context.Background()); before.FacilityStatus != courtstatus.FacilityAvailable {
		t.Fatalf("initial facility status = %q", before.FacilityStatus)
	}

	recorder := postReservation(t, `{"courtId":1,"timeSlot":9,"endTimeSlot":11,"players":[{"name":"Ana Ruiz"},{"name":"Sam Lee","isGuest":true}]}`)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("create status: %d body: %s", recorder.Code, recorder.Body.String())
	}
	if got := recorder.Header().Get("HX-Trigger"); got != statusUpdatedEvent {
		t.Fatalf("HX-Trigger = %q", got)
	}

	var created models.Reservation
	if err := json.NewDecoder(recorder.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" || created.Date != "2025-03-14" || created.Status != models.StatusConfirmed {
		t.Fatalf("created = %+v", created)
	}

	status := poller.Status()
	if status.FacilityStatus != courtstatus.FacilityOpen {
		t.Fatalf("facility status after create = %q, want open", status.FacilityStatus)
	}
	if status.Current.ReservationID != created.ID {
		t.Fatalf("current reservation = %q, want %q", status.Current.ReservationID, created.ID)
	}
}

func TestReservationCreateErrors(t *testing.T) {
	setupReservationsTest(t)

	if first := postReservation(t, `{"courtId":1,"timeSlot":9,"endTimeSlot":11}`); first.Code != http.StatusCreated {
		t.Fatalf("seed reservation status: %d", first.Code)
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "overlap", body: `{"courtId":1,"timeSlot":10,"endTimeSlot":12}`, want: http.StatusConflict},
		{name: "unknown_court", body: `{"courtId":99,"timeSlot":14,"endTimeSlot":15}`, want: http.StatusNotFound},
		{name: "inverted_slots", body: `{"courtId":1,"timeSlot":15,"endTimeSlot":14}`, want: http.StatusBadRequest},
		{name: "missing_slots", body: `{"courtId":1}`, want: http.StatusBadRequest},
		{name: "bad_status", body: `{"courtId":1,"timeSlot":14,"endTimeSlot":15,"status":"maybe"}`, want: http.StatusBadRequest},
		{name: "unknown_field", body: `{"courtId":1,"timeSlot":14,"endTimeSlot":15,"color":"red"}`, want: http.StatusBadRequest},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			recorder := postReservation(t, test.body)
			if recorder.Code != test.want {
				t.Fatalf("status = %d, want %d body: %s", recorder.Code, test.want, recorder.Body.String())
			}
		})
	}
}

func TestReservationsList(t *testing.T) {
	setupReservationsTest(t)
	postReservation(t, `{"courtId":1,"timeSlot":9,"endTimeSlot":11,"players":[{"name":"Ana Ruiz"}]}`)
	postReservation(t, `{"courtId":1,"date":"2025-03-15","timeSlot":9,"endTimeSlot":11}`)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations?court_id=1", nil)
	recorder := httptest.NewRecorder()
	HandleReservationsList(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("list status: %d", recorder.Code)
	}
	var envelope reservations.Envelope
	if err := json.NewDecoder(recorder.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !envelope.Success || len(envelope.Data.Reservations) != 1 {
		t.Fatalf("envelope = %+v", envelope)
	}
	if got := envelope.Data.Reservations[0].Players; len(got) != 1 || got[0].Name != "Ana Ruiz" {
		t.Fatalf("players = %+v", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/reservations?court_id=1&date=2025-03-16", nil)
	recorder = httptest.NewRecorder()
	HandleReservationsList(recorder, req)
	if !strings.Contains(recorder.Body.String(), `"reservations":[]`) {
		t.Fatalf("empty day should encode an empty list: %s", recorder.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/reservations?date=2025-03-16", nil)
	recorder = httptest.NewRecorder()
	HandleReservationsList(recorder, req)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("missing court_id status = %d", recorder.Code)
	}
}

func TestReservationStatusUpdate(t *testing.T) {
	m, courtID := setupReservationsTest(t)

	createRecorder := postReservation(t, `{"courtId":1,"timeSlot":9,"endTimeSlot":11}`)
	var created models.Reservation
	if err := json.NewDecoder(createRecorder.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	update := func(id, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/reservations/"+id+"/status", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.SetPathValue("id", id)
		recorder := httptest.NewRecorder()
		HandleReservationStatusUpdate(recorder, req)
		return recorder
	}

	recorder := update(created.ID, `{"status":"no_show"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("update status: %d body: %s", recorder.Code, recorder.Body.String())
	}
	var updated models.Reservation
	if err := json.NewDecoder(recorder.Body).Decode(&updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Status != models.StatusNoShow {
		t.Fatalf("status = %q, want no-show", updated.Status)
	}

	poller, _ := m.Poller(courtID)
	if got := poller.Status().FacilityStatus; got != courtstatus.FacilityAvailable {
		t.Fatalf("facility status after no-show = %q, want available", got)
	}

	if recorder := update(uuid.NewString(), `{"status":"cancelled"}`); recorder.Code != http.StatusNotFound {
		t.Fatalf("unknown reservation status = %d", recorder.Code)
	}
	if recorder := update(created.ID, `{"status":"blocked"}`); recorder.Code != http.StatusBadRequest {
		t.Fatalf("convert to block status = %d", recorder.Code)
	}
}
