package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	pkgerrors "github.com/vendibook/vendibook-backend/pkg/errors"
	"github.com/vendibook/vendibook-backend/pkg/logger"
	"github.com/vendibook/vendibook-backend/pkg/metrics"
)

const defaultInterval = time.Hour

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger    *logger.Logger
	Registry  *Registry
	Locks     LockFactory
	Metrics   *metrics.CronJobMetrics
	Interval  time.Duration
	Intervals map[string]time.Duration
}

// Service schedules registered jobs on their own cadence and runs each one
// under a distributed lock.
type Service struct {
	logg      *logger.Logger
	registry  *Registry
	locks     LockFactory
	metrics   *metrics.CronJobMetrics
	interval  time.Duration
	intervals map[string]time.Duration
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Locks == nil {
		return nil, fmt.Errorf("lock factory required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:      params.Logger,
		registry:  registry,
		locks:     params.Locks,
		metrics:   params.Metrics,
		interval:  interval,
		intervals: params.Intervals,
	}, nil
}

// Run schedules every job, runs each once immediately, and blocks until the
// context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	for _, job := range s.registry.Jobs() {
		every := s.intervalFor(job.Name())
		if _, err := scheduler.NewJob(
			gocron.DurationJob(every),
			gocron.NewTask(func() { _ = s.runJob(ctx, job) }),
			gocron.WithName(job.Name()),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		); err != nil {
			return fmt.Errorf("schedule %s: %w", job.Name(), err)
		}
		logCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "interval": every.String()})
		s.logg.Info(logCtx, "job scheduled")
	}

	scheduler.Start()
	<-ctx.Done()
	s.logg.Info(ctx, "cron service context canceled")
	if err := scheduler.Shutdown(); err != nil {
		s.logg.Error(ctx, "scheduler shutdown failed", err)
	}
	return ctx.Err()
}

// Trigger runs a settlement job now, under the same lock the scheduler uses,
// and returns its report.
func (s *Service) Trigger(ctx context.Context, name string) (*Report, error) {
	settler, ok := s.registry.Settler(name)
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "unknown settlement job %q", name)
	}

	var report *Report
	err := s.withLock(ctx, name, func(jobCtx context.Context) error {
		var settleErr error
		report, settleErr = settler.Settle(jobCtx)
		if settleErr != nil {
			return settleErr
		}
		return report.Err()
	})
	switch {
	case errors.Is(err, errJobBusy):
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "job is already running")
	case report == nil && err != nil:
		return nil, err
	}
	return report, nil
}

var errJobBusy = errors.New("job already running")

func (s *Service) runJob(ctx context.Context, job Job) error {
	err := s.withLock(ctx, job.Name(), job.Run)
	if errors.Is(err, errJobBusy) {
		s.logg.Info(s.logg.WithField(ctx, "job", job.Name()), "another instance is running this job; skipping")
		return nil
	}
	return err
}

func (s *Service) withLock(ctx context.Context, name string, run func(context.Context) error) error {
	jobCtx := s.logg.WithField(ctx, "job", name)
	jobCtx = s.logg.WithField(jobCtx, "event", "cron.job")

	lock, err := s.locks(name)
	if err != nil {
		s.logg.Error(jobCtx, "failed to build job lock", err)
		return err
	}
	locked, err := lock.Acquire(jobCtx)
	if err != nil {
		s.logg.Error(jobCtx, "lock acquire failed", err)
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		return errJobBusy
	}
	defer func() {
		if relErr := lock.Release(jobCtx); relErr != nil {
			s.logg.Error(jobCtx, "failed to release job lock", relErr)
		}
	}()

	stopKeepAlive := s.keepAlive(jobCtx, lock)
	defer stopKeepAlive()

	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err = run(jobCtx)
	duration := time.Since(start)
	s.observeDuration(name, duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.recordFailure(name)
		return err
	}
	s.logg.Info(jobCtx, "job completed")
	s.recordSuccess(name)
	return nil
}

// keepAlive extends the lock every third of its TTL until the returned stop
// func is called. A lost lock is logged but the run is left to finish, since
// every money movement it makes is guarded by a state transition.
func (s *Service) keepAlive(ctx context.Context, lock Lock) func() {
	every := lock.TTL() / 3
	if every <= 0 {
		return func() {}
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				held, err := lock.Extend(ctx)
				switch {
				case err != nil:
					s.logg.Error(ctx, "job lock extend failed", err)
				case !held:
					s.logg.Warn(ctx, "job lock lost")
					return
				}
			}
		}
	}()
	return func() {
		close(stop)
		<-done
	}
}

func (s *Service) intervalFor(name string) time.Duration {
	if every, ok := s.intervals[name]; ok && every > 0 {
		return every
	}
	return s.interval
}

func (s *Service) observeDuration(job string, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(job, duration)
}

func (s *Service) recordSuccess(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSuccess(job)
}

func (s *Service) recordFailure(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncFailure(job)
}
