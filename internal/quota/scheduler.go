package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	// MidnightSpec fires at 00:00 every day in the scheduler's location.
	MidnightSpec     = "0 0 * * *"
	intervalFirstRun = 5 * time.Second
)

// Resetter is satisfied by *Limiter.
type Resetter interface {
	ResetDaily(ctx context.Context) (int64, error)
}

// Scheduler runs the daily reset at local midnight, or on a fixed interval
// when one is configured.
type Scheduler struct {
	resetter Resetter
	loc      *time.Location
	interval time.Duration
	firstRun time.Duration
	now      func() time.Time
}

// NewScheduler creates a Scheduler. A positive interval replaces the
// midnight schedule; cron rounds it to whole seconds.
func NewScheduler(resetter Resetter, loc *time.Location, interval time.Duration) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		resetter: resetter,
		loc:      loc,
		interval: interval,
		firstRun: intervalFirstRun,
		now:      time.Now,
	}
}

// Schedule is when the reset fires.
func (s *Scheduler) Schedule() (cron.Schedule, error) {
	if s.interval > 0 {
		return &warmStart{first: s.now().Add(s.firstRun), every: cron.Every(s.interval)}, nil
	}
	spec, err := cron.ParseStandard(MidnightSpec)
	if err != nil {
		return nil, fmt.Errorf("parsing reset schedule: %w", err)
	}
	return inZone{schedule: spec, loc: s.loc}, nil
}

// Run blocks until ctx is done, then waits for a running reset to finish.
func (s *Scheduler) Run(ctx context.Context) {
	schedule, err := s.Schedule()
	if err != nil {
		slog.Error("limit reset scheduler not started", "error", err)
		return
	}

	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Schedule(schedule, cron.FuncJob(func() { s.reset(ctx) }))

	if s.interval > 0 {
		slog.Info("limit reset scheduler started", "interval", s.interval, "first_run_in", s.firstRun)
	} else {
		slog.Info("limit reset scheduler started", "spec", MidnightSpec, "timezone", s.loc.String())
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
}

func (s *Scheduler) reset(ctx context.Context) {
	if _, err := s.resetter.ResetDaily(ctx); err != nil {
		slog.Error("scheduled limit reset failed", "error", err)
	}
}

// inZone evaluates a cron spec in loc regardless of the caller's zone.
type inZone struct {
	schedule cron.Schedule
	loc      *time.Location
}

func (z inZone) Next(t time.Time) time.Time {
	return z.schedule.Next(t.In(z.loc))
}

// warmStart fires once at first, then every interval after that.
type warmStart struct {
	first time.Time
	every cron.ConstantDelaySchedule
}

func (w *warmStart) Next(t time.Time) time.Time {
	if t.Before(w.first) {
		return w.first
	}
	return w.every.Next(t)
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
