// Package scheduler triggers the weekly backtest run on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/matchcast/internal/backtest"
	"github.com/yourusername/matchcast/internal/models"
)

// Scheduler owns the cron runner for periodic engine maintenance
type Scheduler struct {
	cron   *cron.Cron
	engine *backtest.Engine
	logger *logrus.Logger
}

// New creates a scheduler around the backtest engine
func New(engine *backtest.Engine, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		engine: engine,
		logger: logger,
	}
}

// Start registers the backtest job and starts the cron loop. The schedule
// uses standard five-field cron syntax.
func (s *Scheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, s.runBacktest)
	if err != nil {
		return fmt.Errorf("invalid backtest schedule %q: %w", spec, err)
	}
	s.cron.Start()
	s.logger.WithField("schedule", spec).Info("Backtest schedule registered")
	return nil
}

// Stop halts the cron loop and returns once any running job has finished
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) runBacktest() {
	report, err := s.engine.Run(context.Background(), backtest.RunOptions{})
	if errors.Is(err, models.ErrBacktestInProgress) {
		s.logger.Warn("Scheduled backtest skipped, a run is already active")
		return
	}
	if err != nil {
		s.logger.Errorf("Scheduled backtest failed: %v", err)
		return
	}
	s.logger.WithFields(logrus.Fields{
		"run_id":    report.RunID,
		"samples":   report.Samples,
		"committed": report.WeightsUpdated,
	}).Info("Scheduled backtest finished")
}
