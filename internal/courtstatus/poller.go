package courtstatus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/metrics"
	"github.com/codr1/courtside/internal/models"
)

const (
	DefaultPollInterval = 60 * time.Second
	DefaultFetchTimeout = 10 * time.Second
	notifyTimeout       = 15 * time.Second
)

var ErrPollerClosed = errors.New("poller closed")

// Source returns every reservation, in any status, on a court for one
// business-local date.
type Source interface {
	ReservationsForDate(ctx context.Context, courtID int64, date string) ([]models.Reservation, error)
}

// Scheduler runs a task on a fixed interval until the job is removed.
type Scheduler interface {
	AddIntervalJob(name string, every time.Duration, task func()) (uuid.UUID, error)
	RemoveJob(id uuid.UUID) error
}

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// ChangeHandler is invoked, off the refresh path, whenever a court's derived
// status differs from the previously cached one.
type ChangeHandler func(ctx context.Context, court models.Court, previous, current DerivedStatus)

type PollerConfig struct {
	Source       Source
	Scheduler    Scheduler
	Location     *time.Location
	Hours        BusinessHours
	Interval     time.Duration
	FetchTimeout time.Duration
	Metrics      metrics.Metrics
	OnChange     ChangeHandler
	Clock        Clock
}

// Poller keeps one court's DerivedStatus fresh. Refreshes may overlap; each one
// is tagged with an issue sequence number and a result is dropped if a refresh
// issued after it has already been applied.
type Poller struct {
	court        models.Court
	source       Source
	scheduler    Scheduler
	loc          *time.Location
	hours        BusinessHours
	interval     time.Duration
	fetchTimeout time.Duration
	metrics      metrics.Metrics
	onChange     ChangeHandler
	clock        Clock
	logger       zerolog.Logger

	issued   atomic.Uint64
	inflight atomic.Int64

	lifecycle sync.Mutex
	running   bool
	jobID     uuid.UUID

	mu          sync.Mutex
	status      DerivedStatus
	hasStatus   bool
	applied     uint64
	closed      bool
	nextSubID   int
	subscribers map[int]chan DerivedStatus
}

func NewPoller(court models.Court, cfg PollerConfig) *Poller {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	hours := cfg.Hours
	if hours == (BusinessHours{}) {
		hours = DefaultBusinessHours
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.Noop{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}

	return &Poller{
		court:        court,
		source:       cfg.Source,
		scheduler:    cfg.Scheduler,
		loc:          loc,
		hours:        hours,
		interval:     interval,
		fetchTimeout: fetchTimeout,
		metrics:      m,
		onChange:     cfg.OnChange,
		clock:        clock,
		logger: log.With().
			Str("component", "court_poller").
			Int64("court_id", court.ID).
			Logger(),
		subscribers: make(map[int]chan DerivedStatus),
	}
}

func (p *Poller) Court() models.Court {
	return p.court
}

// Start performs the initial load and then schedules a refresh every interval.
// Calling Start on a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	if p.isClosed() {
		return ErrPollerClosed
	}
	if p.running {
		return nil
	}
	if p.scheduler == nil {
		return fmt.Errorf("court %d poller has no scheduler", p.court.ID)
	}

	p.Refresh(ctx)

	jobName := fmt.Sprintf("court_status_poll_%d", p.court.ID)
	jobID, err := p.scheduler.AddIntervalJob(jobName, p.interval, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), p.fetchTimeout+5*time.Second)
		defer cancel()
		p.Refresh(p.logger.WithContext(jobCtx))
	})
	if err != nil {
		return fmt.Errorf("schedule court %d poll: %w", p.court.ID, err)
	}

	p.jobID = jobID
	p.running = true
	p.logger.Info().Dur("interval", p.interval).Msg("Court status polling started")
	return nil
}

// Stop cancels the polling job. Subscribers stay attached and keep the last value.
func (p *Poller) Stop() error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	if !p.running {
		return nil
	}
	if err := p.scheduler.RemoveJob(p.jobID); err != nil {
		return fmt.Errorf("remove court %d poll job: %w", p.court.ID, err)
	}
	p.running = false
	p.jobID = uuid.Nil
	p.logger.Info().Msg("Court status polling stopped")
	return nil
}

// Close stops polling and closes every subscriber channel.
func (p *Poller) Close() error {
	err := p.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return err
	}
	p.closed = true
	for id, ch := range p.subscribers {
		close(ch)
		delete(p.subscribers, id)
	}
	return err
}

func (p *Poller) IsRunning() bool {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	return p.running
}

func (p *Poller) IsLoading() bool {
	return p.inflight.Load() > 0
}

// Status returns the cached status, or a fallback if nothing has loaded yet.
func (p *Poller) Status() DerivedStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasStatus {
		return FallbackStatus(p.clock.Now().In(p.loc), nil)
	}
	return p.status
}

// Refresh fetches today's reservations, derives the status and caches it. Fetch
// failures are absorbed into a fallback status. The returned value is whatever
// is cached once this refresh has been applied or discarded.
func (p *Poller) Refresh(ctx context.Context) DerivedStatus {
	seq := p.issued.Add(1)
	p.inflight.Add(1)
	defer p.inflight.Add(-1)
	p.metrics.IncPolls(p.court.ID)

	now := p.clock.Now().In(p.loc)
	date := now.Format(models.DateLayout)

	var next DerivedStatus
	if p.source == nil {
		next = FallbackStatus(now, errors.New("no reservation source configured"))
	} else {
		fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
		started := time.Now()
		reservations, err := p.source.ReservationsForDate(fetchCtx, p.court.ID, date)
		cancel()
		p.metrics.ObserveFetchDuration(time.Since(started).Seconds())

		if err != nil {
			p.metrics.IncFetchFailures(p.court.ID)
			p.logger.Error().Err(err).Str("date", date).Uint64("seq", seq).Msg("Failed to fetch reservations")
			next = FallbackStatus(now, err)
		} else {
			next = ComputeStatus(reservations, now, p.hours)
		}
	}

	return p.apply(ctx, seq, next)
}

func (p *Poller) apply(ctx context.Context, seq uint64, next DerivedStatus) DerivedStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	if seq < p.applied {
		p.metrics.IncStaleDiscarded(p.court.ID)
		p.logger.Debug().Uint64("seq", seq).Uint64("applied_seq", p.applied).Msg("Discarded stale status refresh")
		return p.status
	}

	previous, hadStatus := p.status, p.hasStatus
	p.applied = seq
	p.status = next
	p.hasStatus = true
	p.metrics.SetFacilityStatus(p.court.ID, string(next.FacilityStatus))

	if hadStatus && previous.Equal(next) {
		return next
	}

	if !p.closed {
		for _, ch := range p.subscribers {
			offerLatest(ch, next)
		}
	}

	if hadStatus {
		p.metrics.IncStatusChanges(p.court.ID)
		p.logger.Debug().
			Str("from", string(previous.FacilityStatus)).
			Str("to", string(next.FacilityStatus)).
			Uint64("seq", seq).
			Msg("Court status changed")
		if p.onChange != nil {
			go p.notify(ctx, previous, next)
		}
	}
	return next
}

func (p *Poller) notify(ctx context.Context, previous, current DerivedStatus) {
	// Detached so a finished HTTP request does not abort delivery.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	p.onChange(notifyCtx, p.court, previous, current)
}

// Subscribe returns a stream of status changes. The cached status, if any, is
// delivered first. Slow readers only ever see the latest value.
func (p *Poller) Subscribe() (<-chan DerivedStatus, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan DerivedStatus, 1)
	if p.closed {
		close(ch)
		return ch, func() {}
	}
	if p.hasStatus {
		ch <- p.status
	}

	id := p.nextSubID
	p.nextSubID++
	p.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if existing, ok := p.subscribers[id]; ok {
				delete(p.subscribers, id)
				close(existing)
			}
		})
	}
}

func (p *Poller) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// offerLatest replaces any undelivered value in a 1-slot channel. Callers hold
// p.mu, which makes them the only sender.
func offerLatest(ch chan DerivedStatus, status DerivedStatus) {
	select {
	case ch <- status:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- status:
	default:
	}
}
