// cmd/server/server.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/api"
	courtsapi "github.com/codr1/courtside/internal/api/courts"
	reservationsapi "github.com/codr1/courtside/internal/api/reservations"
	statusapi "github.com/codr1/courtside/internal/api/status"
	"github.com/codr1/courtside/internal/config"
	"github.com/codr1/courtside/internal/courtstatus"
	"github.com/codr1/courtside/internal/db"
	"github.com/codr1/courtside/internal/metrics"
	"github.com/codr1/courtside/internal/notifier"
	pubsubnotifier "github.com/codr1/courtside/internal/notifier/pubsub"
	slacknotifier "github.com/codr1/courtside/internal/notifier/slack"
	"github.com/codr1/courtside/internal/ratelimit"
	"github.com/codr1/courtside/internal/reservations"
	"github.com/codr1/courtside/internal/scheduler"
)

// app holds the long-lived services behind the HTTP handlers.
type app struct {
	cfg       *config.Config
	loc       *time.Location
	store     *reservations.Store
	scheduler *scheduler.Service
	manager   *courtstatus.Manager
	limiter   *ratelimit.Limiter
	publisher *pubsubnotifier.Publisher
}

func newApp(ctx context.Context, cfg *config.Config, database *db.DB) (*app, error) {
	loc, err := cfg.Status.Location()
	if err != nil {
		return nil, fmt.Errorf("load business timezone: %w", err)
	}

	a := &app{
		cfg:   cfg,
		loc:   loc,
		store: reservations.NewStore(database),
	}

	var m metrics.Metrics = metrics.Noop{}
	if cfg.Features.EnableMetrics {
		m = metrics.NewService()
	}

	a.scheduler, err = scheduler.New(loc)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	fanout := notifier.NewFanout(m)
	if cfg.Notifications.Slack.Enabled {
		fanout.Add("slack", slacknotifier.NewNotifier(cfg.Notifications.Slack.Token, cfg.Notifications.Slack.ChannelID))
	}
	if cfg.Notifications.PubSub.Enabled {
		a.publisher, err = pubsubnotifier.New(ctx, cfg.Notifications.PubSub.ProjectID, cfg.Notifications.PubSub.Topic)
		if err != nil {
			return nil, fmt.Errorf("create pubsub publisher: %w", err)
		}
		fanout.Add("pubsub", a.publisher)
	}

	var onChange courtstatus.ChangeHandler
	if fanout.Len() > 0 {
		onChange = fanout.Handler()
	}

	a.manager = courtstatus.NewManager(courtstatus.PollerConfig{
		Source:       newSource(cfg, a.store),
		Scheduler:    a.scheduler,
		Location:     loc,
		Hours:        courtstatus.BusinessHours{Open: cfg.Status.OpenHour, Close: cfg.Status.CloseHour},
		Interval:     cfg.Status.PollEvery(),
		FetchTimeout: cfg.Status.FetchTimeoutDuration(),
		Metrics:      m,
		OnChange:     onChange,
	})

	a.limiter = ratelimit.New(&ratelimit.Config{
		PerMinute: cfg.RefreshLimit.PerMinute,
		Burst:     cfg.RefreshLimit.Burst,
	})

	statusapi.InitHandlers(statusapi.Deps{
		Manager:    a.manager,
		Limiter:    a.limiter,
		TrustProxy: cfg.RefreshLimit.TrustProxy,
	})
	courtsapi.InitHandlers(a.store, a.manager)
	reservationsapi.InitHandlers(reservationsapi.Deps{
		Store:    a.store,
		Manager:  a.manager,
		Location: loc,
	})

	return a, nil
}

func newSource(cfg *config.Config, store *reservations.Store) courtstatus.Source {
	if strings.EqualFold(cfg.Status.Source, config.SourceHTTP) {
		return reservations.NewClient(
			cfg.Status.SourceURL,
			reservations.WithToken(cfg.Status.SourceToken),
			reservations.WithHTTPClient(&http.Client{Timeout: cfg.Status.FetchTimeoutDuration()}),
		)
	}
	return store
}

// start registers every stored court, schedules housekeeping and begins polling.
func (a *app) start(ctx context.Context) error {
	courts, err := a.store.ListCourts(ctx)
	if err != nil {
		return err
	}
	for _, court := range courts {
		a.manager.Add(court)
	}

	if a.cfg.Retention.Days > 0 {
		if _, err := scheduler.RegisterPurgeJob(a.scheduler, a.store, a.loc, a.cfg.Retention.Days, a.cfg.Retention.Schedule); err != nil {
			return fmt.Errorf("register retention purge: %w", err)
		}
	}

	if err := a.scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	return a.manager.StartAll(ctx)
}

func (a *app) close() {
	if err := a.manager.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to stop court pollers")
	}
	a.limiter.Close()
	if err := a.scheduler.Stop(); err != nil {
		log.Error().Err(err).Msg("Failed to stop scheduler")
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
}

func newServer(cfg *config.Config) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	)

	// Register routes
	registerRoutes(router, cfg)

	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, cfg *config.Config) {
	// Status board
	mux.HandleFunc("GET /{$}", statusapi.HandleBoardPage)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.Features.EnableMetrics {
		mux.Handle("GET /metrics", metrics.NewMetricsHandler())
	}

	// Court routes
	mux.HandleFunc("GET /api/v1/courts", courtsapi.HandleCourtsList)
	mux.HandleFunc("POST /api/v1/courts", courtsapi.HandleCourtCreate)

	// Court status routes
	mux.HandleFunc("GET /api/v1/courts/{court_id}/status", statusapi.HandleCourtStatus)
	mux.HandleFunc("POST /api/v1/courts/{court_id}/status/refresh", statusapi.HandleStatusRefresh)
	mux.HandleFunc("GET /api/v1/courts/{court_id}/status/stream", statusapi.HandleStatusStream)

	// Reservation routes
	mux.HandleFunc("GET /api/v1/reservations", reservationsapi.HandleReservationsList)
	mux.HandleFunc("POST /api/v1/reservations", reservationsapi.HandleReservationCreate)
	mux.HandleFunc("PUT /api/v1/reservations/{id}/status", reservationsapi.HandleReservationStatusUpdate)
}
