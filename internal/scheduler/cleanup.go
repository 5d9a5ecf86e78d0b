package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/models"
)

const (
	purgeJobName = "reservation_retention_purge"
	purgeTimeout = 2 * time.Minute
)

// Purger deletes reservations dated before a YYYY-MM-DD date.
type Purger interface {
	PurgeBefore(ctx context.Context, date string) (int64, error)
}

// PurgeExpiredReservations removes reservations older than retentionDays
// business-local days. Today's and yesterday's bookings always survive.
func PurgeExpiredReservations(ctx context.Context, purger Purger, now time.Time, loc *time.Location, retentionDays int) (int64, error) {
	if purger == nil {
		return 0, fmt.Errorf("reservation purge requires a store")
	}
	if retentionDays < 1 {
		retentionDays = 1
	}
	if loc == nil {
		loc = time.Local
	}

	cutoff := now.In(loc).AddDate(0, 0, -retentionDays).Format(models.DateLayout)
	deleted, err := purger.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge reservations: %w", err)
	}

	log.Ctx(ctx).Info().
		Str("cutoff", cutoff).
		Int64("deleted", deleted).
		Msg("Purged expired reservations")
	return deleted, nil
}

// RegisterPurgeJob schedules PurgeExpiredReservations on cronExpr.
func RegisterPurgeJob(svc *Service, purger Purger, loc *time.Location, retentionDays int, cronExpr string) (gocron.Job, error) {
	if purger == nil {
		return nil, fmt.Errorf("reservation purge requires a store")
	}
	logger := log.With().Str("component", "retention").Logger()

	return svc.AddJob(purgeJobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
		defer cancel()
		ctx = logger.WithContext(ctx)

		if _, err := PurgeExpiredReservations(ctx, purger, time.Now(), loc, retentionDays); err != nil {
			logger.Error().Err(err).Msg("Reservation purge failed")
		}
	})
}
