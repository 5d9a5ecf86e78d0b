package scheduler

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotInitialized = errors.New("scheduler not initialized")
	ErrEmptyJobName   = errors.New("job name is required")
	ErrEmptyCronExpr  = errors.New("cron expression is required")
	ErrBadInterval    = errors.New("job interval must be positive")
)

// Service wraps a gocron scheduler for app-wide scheduling.
type Service struct {
	scheduler gocron.Scheduler
	stopOnce  sync.Once
	stopErr   error
}

// New creates a scheduler. Cron jobs are evaluated in loc; nil means local time.
func New(loc *time.Location) (*Service, error) {
	opts := []gocron.SchedulerOption{
		gocron.WithGlobalJobOptions(
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					log.Error().
						Str("job_id", jobID.String()).
						Str("job_name", jobName).
						Interface("panic", recoverData).
						Msg("Scheduler job panicked")
				}),
			),
		),
	}
	if loc != nil {
		opts = append(opts, gocron.WithLocation(loc))
	}

	sched, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("Scheduler initialized")
	return &Service{scheduler: sched}, nil
}

// Start begins running scheduled jobs.
func (s *Service) Start() error {
	if s == nil {
		log.Error().Msg("Scheduler start requested before initialization")
		return ErrNotInitialized
	}
	log.Info().Msg("Scheduler starting")
	s.scheduler.Start()
	return nil
}

// Stop shuts down the scheduler and prevents new jobs from running.
func (s *Service) Stop() error {
	if s == nil {
		return ErrNotInitialized
	}
	s.stopOnce.Do(func() {
		log.Info().Msg("Scheduler stopping")
		s.stopErr = s.scheduler.Shutdown()
	})
	return s.stopErr
}

// AddJob registers a cron-based job with the scheduler.
func (s *Service) AddJob(name, cronExpr string, task func()) (gocron.Job, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyJobName
	}
	if strings.TrimSpace(cronExpr) == "" {
		return nil, ErrEmptyCronExpr
	}
	jobLogger := log.With().Str("job_name", name).Str("cron", cronExpr).Logger()
	jobLogger.Info().Msg("Registering scheduler job")

	job, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(wrapTask(jobLogger, task)),
		gocron.WithName(name),
	)
	if err != nil {
		jobLogger.Error().Err(err).Msg("Failed to register scheduler job")
		return nil, err
	}
	jobLogger.Info().Msg("Scheduler job registered")
	return job, nil
}

// AddIntervalJob runs task every interval. A run that is still in flight when
// the next tick fires causes that tick to be skipped.
func (s *Service) AddIntervalJob(name string, every time.Duration, task func()) (uuid.UUID, error) {
	if s == nil {
		return uuid.Nil, ErrNotInitialized
	}
	if strings.TrimSpace(name) == "" {
		return uuid.Nil, ErrEmptyJobName
	}
	if every <= 0 {
		return uuid.Nil, ErrBadInterval
	}
	jobLogger := log.With().Str("job_name", name).Dur("every", every).Logger()

	job, err := s.scheduler.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(wrapTask(jobLogger, task)),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		jobLogger.Error().Err(err).Msg("Failed to register interval job")
		return uuid.Nil, err
	}
	jobLogger.Debug().Str("job_id", job.ID().String()).Msg("Interval job registered")
	return job.ID(), nil
}

// RemoveJob unschedules a job. Runs already in progress finish.
func (s *Service) RemoveJob(id uuid.UUID) error {
	if s == nil {
		return ErrNotInitialized
	}
	if err := s.scheduler.RemoveJob(id); err != nil {
		if errors.Is(err, gocron.ErrJobNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// JobCount reports how many jobs are registered.
func (s *Service) JobCount() int {
	if s == nil {
		return 0
	}
	return len(s.scheduler.Jobs())
}

func wrapTask(jobLogger zerolog.Logger, task func()) func() {
	return func() {
		jobLogger.Debug().Msg("Scheduler job started")
		task()
		jobLogger.Debug().Msg("Scheduler job completed")
	}
}
