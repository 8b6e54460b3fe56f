// Package schedule runs the snapshot batch on a cron expression.
package schedule

import (
	"context"
	"errors"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler triggers a batch run on a cron schedule.
type Scheduler struct {
	expr   string
	job    func()
	cron   *cron.Cron
	logger zerolog.Logger

	mu      sync.Mutex
	running bool
}

// New builds a scheduler that invokes job per the standard 5-field cron
// expression expr.
func New(expr string, job func(), logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		expr:   expr,
		job:    job,
		cron:   cron.New(),
		logger: logger.With().Str("component", "schedule").Logger(),
	}
}

// Start registers the schedule and begins running. It returns an error when
// the expression does not parse or the scheduler already runs.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler already running")
	}
	if _, err := s.cron.AddFunc(s.expr, s.job); err != nil {
		return err
	}
	s.cron.Start()
	s.running = true
	s.logger.Info().Str("cron", s.expr).Msg("snapshot schedule started")
	return nil
}

// Stop stops scheduling new runs and returns a context that completes when
// an in-flight run finishes.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	s.running = false
	s.logger.Info().Msg("stopping snapshot schedule")
	return s.cron.Stop()
}
