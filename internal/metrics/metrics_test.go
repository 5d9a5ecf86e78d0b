package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewService(reg)

	s.IncPolls(1)
	s.IncPolls(1)
	s.IncPolls(2)
	s.IncFetchFailures(2)
	s.IncStaleDiscarded(1)
	s.IncStatusChanges(1)
	s.IncNotifications("slack", true)
	s.IncNotifications("slack", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(s.Polls.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Polls.WithLabelValues("2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.FetchFailures.WithLabelValues("2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.StaleDiscarded.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.StatusChanges.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Notifications.WithLabelValues("slack", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Notifications.WithLabelValues("slack", "failed")))
}

func TestSetFacilityStatusIsOneHot(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewService(reg)

	s.SetFacilityStatus(3, "open")
	s.SetFacilityStatus(3, "closed")

	assert.Equal(t, 0.0, testutil.ToFloat64(s.FacilityStatus.WithLabelValues("3", "open")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.FacilityStatus.WithLabelValues("3", "closed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.FacilityStatus.WithLabelValues("3", "available")))
}

func TestMetricsHandlerExposesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewService(reg)
	s.ObserveFetchDuration(0.2)
	s.IncPolls(7)

	recorder := httptest.NewRecorder()
	NewMetricsHandler(reg).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	body := recorder.Body.String()
	assert.True(t, strings.Contains(body, `courtside_polls_total{court_id="7"} 1`))
	assert.True(t, strings.Contains(body, "courtside_fetch_duration_seconds_count 1"))
}
