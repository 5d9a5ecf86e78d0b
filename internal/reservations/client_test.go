package reservations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientReservationsForDate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/reservations", r.URL.Path)
		assert.Equal(t, "4", r.URL.Query().Get("court_id"))
		assert.Equal(t, "2025-03-14", r.URL.Query().Get("date"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "data": {"reservations": [
			{"id": "r1", "timeSlot": 10, "endTimeSlot": 12, "status": "confirmed", "players": [{"name": "Ana Ruiz", "isGuest": false}]}
		]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", WithToken("secret"))
	got, err := client.ReservationsForDate(context.Background(), 4, "2025-03-14")

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)
	assert.Equal(t, int64(4), got[0].CourtID)
	assert.Equal(t, "Ana Ruiz", got[0].Players[0].Name)
}

func TestClientNoTokenHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	got, err := NewClient(server.URL).ReservationsForDate(context.Background(), 1, "2025-03-14")

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "server_error", status: http.StatusServiceUnavailable, body: "down", wantErr: "503"},
		{name: "rejected", status: http.StatusOK, body: `{"success": false, "message": "bad court"}`, wantErr: "bad court"},
		{name: "malformed", status: http.StatusOK, body: `<html>`, wantErr: "malformed"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(test.status)
				_, _ = w.Write([]byte(test.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL).ReservationsForDate(context.Background(), 1, "2025-03-14")

			require.Error(t, err)
			assert.Contains(t, err.Error(), test.wantErr)
		})
	}
}

func TestClientHonorsContext(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(server.URL).ReservationsForDate(ctx, 1, "2025-03-14")

	require.Error(t, err)
}
