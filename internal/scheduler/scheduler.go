// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const DefaultPurgeSchedule = "@every 1h"

// CodePurger clears confirmation codes whose expiry has passed.
type CodePurger interface {
	ClearExpiredConfirmationCodes(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler 定时清理过期确认码。
type Scheduler struct {
	purger   CodePurger
	cron     *cron.Cron
	schedule string
	timeout  time.Duration

	mu      sync.Mutex
	started bool
}

// New creates a scheduler for the given cron spec.
func New(purger CodePurger, schedule string) *Scheduler {
	if strings.TrimSpace(schedule) == "" {
		schedule = DefaultPurgeSchedule
	}
	return &Scheduler{
		purger:   purger,
		cron:     cron.New(),
		schedule: schedule,
		timeout:  30 * time.Second,
	}
}

// Start registers the purge job and starts the cron loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.PurgeExpiredCodes(context.Background()); err != nil {
			logrus.WithError(err).Error("failed to purge expired confirmation codes")
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.started = true
	logrus.WithFields(logrus.Fields{
		"schedule": s.schedule,
		"jobs":     len(s.cron.Entries()),
	}).Info("scheduler started")
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.started = false
	logrus.Info("scheduler stopped")
}

// PurgeExpiredCodes runs the purge once.
func (s *Scheduler) PurgeExpiredCodes(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cleared, err := s.purger.ClearExpiredConfirmationCodes(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if cleared > 0 {
		logrus.WithField("cleared", cleared).Info("expired confirmation codes purged")
	}
	return cleared, nil
}
