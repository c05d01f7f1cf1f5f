// Package scheduler triggers the daily run on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	pvsync "pv-reviews/internal/sync"
)

const jobKey = "daily"

// Job is one scheduled run.
type Job func(ctx context.Context)

// Scheduler runs a job on a cron schedule, skipping a tick while the
// previous run is still in progress.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	job      Job
	locks    *pvsync.KeyLock
	ctx      context.Context
	cancel   context.CancelFunc
}

// New parses schedule (standard five-field cron expression) in the named time zone.
func New(schedule, timezone string, job Job) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		schedule: schedule,
		job:      job,
		locks:    pvsync.NewKeyLock(),
		ctx:      ctx,
		cancel:   cancel,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		cancel()
		return nil, fmt.Errorf("parse schedule %q: %w", schedule, err)
	}
	return s, nil
}

// run executes the job unless a previous run still holds the guard.
func (s *Scheduler) run() {
	slog.Info("scheduled run triggered", "schedule", s.schedule)
	s.locks.Guard(jobKey, func() {
		defer func() {
			if p := recover(); p != nil {
				slog.Error("scheduled run panicked", "panic", p)
			}
		}()
		s.job(s.ctx)
	})
}

// RunNow runs the job immediately, subject to the same overlap guard.
func (s *Scheduler) RunNow() {
	s.run()
}

// Start begins firing the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "schedule", s.schedule, "next_run", s.Next())
}

// Next returns the next activation time, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop cancels a run in progress and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("scheduler stopped")
}
