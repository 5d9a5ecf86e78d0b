// Package metrics exposes Prometheus instrumentation for the court pollers.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics decouples the pollers and notifiers from Prometheus.
type Metrics interface {
	IncPolls(courtID int64)
	IncFetchFailures(courtID int64)
	IncStaleDiscarded(courtID int64)
	IncStatusChanges(courtID int64)
	ObserveFetchDuration(seconds float64)
	SetFacilityStatus(courtID int64, status string)
	IncNotifications(sink string, ok bool)
}

var facilityStatuses = []string{"open", "closed", "available"}

var _ Metrics = (*Service)(nil)

type Service struct {
	Polls          *prometheus.CounterVec
	FetchFailures  *prometheus.CounterVec
	StaleDiscarded *prometheus.CounterVec
	StatusChanges  *prometheus.CounterVec
	FetchDuration  prometheus.Histogram
	FacilityStatus *prometheus.GaugeVec
	Notifications  *prometheus.CounterVec
}

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the collectors.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courtside_polls_total",
			Help: "Status refreshes issued per court, timer and manual combined.",
		}, []string{"court_id"}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courtside_fetch_failures_total",
			Help: "Reservation fetches that failed and produced a fallback status.",
		}, []string{"court_id"}),
		StaleDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courtside_stale_responses_discarded_total",
			Help: "Fetch results dropped because a newer refresh had already been applied.",
		}, []string{"court_id"}),
		StatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courtside_status_changes_total",
			Help: "Derived statuses that differed from the cached one.",
		}, []string{"court_id"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "courtside_fetch_duration_seconds",
			Help:    "Duration of reservation fetches.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		FacilityStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "courtside_facility_status",
			Help: "1 for the court's current facility status, 0 for the others.",
		}, []string{"court_id", "status"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courtside_notifications_total",
			Help: "Status change notifications by sink and outcome.",
		}, []string{"sink", "outcome"}),
	}

	reg.MustRegister(
		s.Polls,
		s.FetchFailures,
		s.StaleDiscarded,
		s.StatusChanges,
		s.FetchDuration,
		s.FacilityStatus,
		s.Notifications,
	)

	return s
}

func courtLabel(courtID int64) string {
	return strconv.FormatInt(courtID, 10)
}

func (s *Service) IncPolls(courtID int64) {
	s.Polls.WithLabelValues(courtLabel(courtID)).Inc()
}

func (s *Service) IncFetchFailures(courtID int64) {
	s.FetchFailures.WithLabelValues(courtLabel(courtID)).Inc()
}

func (s *Service) IncStaleDiscarded(courtID int64) {
	s.StaleDiscarded.WithLabelValues(courtLabel(courtID)).Inc()
}

func (s *Service) IncStatusChanges(courtID int64) {
	s.StatusChanges.WithLabelValues(courtLabel(courtID)).Inc()
}

func (s *Service) ObserveFetchDuration(seconds float64) {
	s.FetchDuration.Observe(seconds)
}

func (s *Service) SetFacilityStatus(courtID int64, status string) {
	label := courtLabel(courtID)
	for _, candidate := range facilityStatuses {
		value := 0.0
		if candidate == status {
			value = 1
		}
		s.FacilityStatus.WithLabelValues(label, candidate).Set(value)
	}
}

func (s *Service) IncNotifications(sink string, ok bool) {
	outcome := "sent"
	if !ok {
		outcome = "failed"
	}
	s.Notifications.WithLabelValues(sink, outcome).Inc()
}

// Noop discards every observation.
type Noop struct{}

var _ Metrics = Noop{}

func (Noop) IncPolls(int64)                  {}
func (Noop) IncFetchFailures(int64)          {}
func (Noop) IncStaleDiscarded(int64)         {}
func (Noop) IncStatusChanges(int64)          {}
func (Noop) ObserveFetchDuration(float64)    {}
func (Noop) SetFacilityStatus(int64, string) {}
func (Noop) IncNotifications(string, bool)   {}
