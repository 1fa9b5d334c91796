// Package sweeper periodically removes records whose expiry has passed from
// the revocation and refresh token stores.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tech-arch1tect/authsession/services/logging"
	"github.com/tech-arch1tect/authsession/services/metrics"
	"go.uber.org/zap"
)

type Purger interface {
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

type Target struct {
	Name   string
	Purger Purger
}

type Sweeper struct {
	targets  []Target
	schedule string
	timeout  time.Duration
	logger   *logging.Service
	metrics  *metrics.Collector
	now      func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
}

func New(schedule string, timeout time.Duration, logger *logging.Service, collector *metrics.Collector, targets ...Target) (*Sweeper, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	return &Sweeper{
		targets:  targets,
		schedule: schedule,
		timeout:  timeout,
		logger:   logger,
		metrics:  collector,
		now:      time.Now,
	}, nil
}

func (s *Sweeper) SetClock(now func() time.Time) {
	s.now = now
}

// Sweep purges every target of records that expired before now. A failing
// target does not stop the others; all failures are returned joined.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (map[string]int64, error) {
	purged := make(map[string]int64, len(s.targets))
	var errs []error

	for _, target := range s.targets {
		count, err := target.Purger.PurgeExpired(ctx, now)
		if err != nil {
			s.metrics.SweepFailed(target.Name)
			s.logger.Error("sweep failed",
				zap.String("target", target.Name),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", target.Name, err))
			continue
		}

		purged[target.Name] = count
		s.metrics.SweepPurged(target.Name, count)
		if count > 0 {
			s.logger.Info("purged expired records",
				zap.String("target", target.Name),
				zap.Int64("count", count))
		} else {
			s.logger.Debug("no expired records to purge", zap.String("target", target.Name))
		}
	}

	return purged, errors.Join(errs...)
}

// RunOnce performs one sweep bounded by the configured timeout.
func (s *Sweeper) RunOnce() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if _, err := s.Sweep(ctx, s.now()); err != nil {
		s.logger.Warn("sweep incomplete, retrying on next schedule", zap.Error(err))
	}
}

func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}

	scheduler := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	entryID, err := scheduler.AddFunc(s.schedule, s.RunOnce)
	if err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	scheduler.Start()
	s.cron = scheduler
	s.entryID = entryID

	s.logger.Info("sweeper started",
		zap.String("schedule", s.schedule),
		zap.Int("targets", len(s.targets)),
		zap.Time("next_run", scheduler.Entry(entryID).Next))

	return nil
}

// Stop halts scheduling and waits for an in-flight sweep or ctx, whichever
// finishes first.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	scheduler := s.cron
	s.cron = nil
	s.mu.Unlock()

	if scheduler == nil {
		return nil
	}

	select {
	case <-scheduler.Stop().Done():
		s.logger.Info("sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}
