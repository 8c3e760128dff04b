package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// TempSweeper removes abandoned temp files older than maxAge
type TempSweeper interface {
	SweepTemp(maxAge time.Duration, now time.Time) (int, error)
}

// Sweeper periodically clears temp files left by interrupted image writes
type Sweeper struct {
	store  TempSweeper
	maxAge time.Duration
	logger *zap.SugaredLogger
	cron   *cron.Cron
}

// NewSweeper schedules a sweep on the given cron expression (e.g. "@every 10m")
func NewSweeper(store TempSweeper, schedule string, maxAge time.Duration, logger *zap.SugaredLogger) (*Sweeper, error) {
	s := &Sweeper{
		store:  store,
		maxAge: maxAge,
		logger: logger,
		cron:   cron.New(cron.WithLocation(time.UTC)),
	}
	if _, err := s.cron.AddFunc(schedule, s.Run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the schedule in the background
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish or ctx to expire
func (s *Sweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Run performs one sweep
func (s *Sweeper) Run() {
	removed, err := s.store.SweepTemp(s.maxAge, time.Now())
	if err != nil {
		s.logger.Warnw("temp file sweep failed", "removed", removed, "error", err)
		return
	}
	if removed > 0 {
		s.logger.Infow("removed abandoned temp files", "removed", removed)
	}
}
