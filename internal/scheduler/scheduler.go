// Package scheduler runs the periodic refresh on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "admincal/internal/log"
)

// Job is one scheduled unit of work. It receives the scheduler's context.
type Job func(ctx context.Context)

// Scheduler wraps a cron runner with a single job. A run that is still in
// progress when the next tick fires causes that tick to be skipped, and a
// panicking run is logged instead of killing the process.
type Scheduler struct {
	cron  *cron.Cron
	entry cron.EntryID
	spec  string
}

// cronLogger adapts internal/log to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	appLog.Error("cron: "+msg, err, kv...)
}

// New validates spec (standard 5-field cron syntax or descriptors like
// "@every 5m") and prepares a scheduler running job in loc.
func New(ctx context.Context, spec string, loc *time.Location, job Job) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.SkipIfStillRunning(logger), cron.Recover(logger)),
	)

	id, err := c.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		job(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("scheduler: invalid refresh schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c, entry: id, spec: spec}, nil
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	appLog.Info("refresh scheduler started", "schedule", s.spec, "next", s.Next().Format(time.RFC3339))
}

// Stop halts the schedule and waits for a running job to return or ctx to
// end, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		appLog.Warn("refresh scheduler stop timed out")
	}
}

// Next returns the next activation time, zero before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}
