package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/courtstatus"
	"github.com/codr1/courtside/internal/metrics"
	"github.com/codr1/courtside/internal/models"
)

// StatusChange describes one court moving from one derived status to another.
type StatusChange struct {
	CourtID    int64                     `msgpack:"courtId"`
	CourtLabel string                    `msgpack:"courtLabel"`
	Previous   courtstatus.DerivedStatus `msgpack:"previous"`
	Current    courtstatus.DerivedStatus `msgpack:"current"`
	ChangedAt  time.Time                 `msgpack:"changedAt"`
}

// FacilityChanged reports an open/closed/available transition.
func (c StatusChange) FacilityChanged() bool {
	return c.Previous.FacilityStatus != c.Current.FacilityStatus
}

// CurrentSlotChanged reports a different reservation, or block, occupying the court.
func (c StatusChange) CurrentSlotChanged() bool {
	prev, cur := c.Previous.Current, c.Current.Current
	return prev.Exists != cur.Exists ||
		prev.ReservationID != cur.ReservationID ||
		prev.IsBlocked != cur.IsBlocked
}

// Notifier delivers status changes to one destination.
type Notifier interface {
	NotifyStatusChange(ctx context.Context, change StatusChange) error
}

type sink struct {
	name     string
	notifier Notifier
}

// Fanout delivers each change to every registered notifier.
type Fanout struct {
	sinks   []sink
	metrics metrics.Metrics
}

func NewFanout(m metrics.Metrics) *Fanout {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Fanout{metrics: m}
}

// Add registers a notifier under a name used in logs and metrics.
func (f *Fanout) Add(name string, n Notifier) {
	if n == nil {
		return
	}
	f.sinks = append(f.sinks, sink{name: name, notifier: n})
}

func (f *Fanout) Len() int {
	return len(f.sinks)
}

// NotifyStatusChange calls every notifier, even after a failure, and joins
// their errors.
func (f *Fanout) NotifyStatusChange(ctx context.Context, change StatusChange) error {
	var errs []error
	for _, s := range f.sinks {
		err := s.notifier.NotifyStatusChange(ctx, change)
		f.metrics.IncNotifications(s.name, err == nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// Handler adapts the fanout to a poller change callback.
func (f *Fanout) Handler() courtstatus.ChangeHandler {
	return func(ctx context.Context, court models.Court, previous, current courtstatus.DerivedStatus) {
		change := StatusChange{
			CourtID:    court.ID,
			CourtLabel: court.Label(),
			Previous:   previous,
			Current:    current,
			ChangedAt:  current.LastUpdated,
		}
		if err := f.NotifyStatusChange(ctx, change); err != nil {
			log.Ctx(ctx).Error().
				Err(err).
				Int64("court_id", court.ID).
				Msg("Failed to deliver court status change")
		}
	}
}
