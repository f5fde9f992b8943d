package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// KST is Korea Standard Time. Korea does not observe daylight saving time.
var KST = time.FixedZone("KST", 9*60*60)

// ErrNoJob is returned by Run when no job was added.
var ErrNoJob = errors.New("no scheduled job")

// Job is one scheduled unit of work. ctx is cancelled when the scheduler
// stops.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner with context-aware jobs.
type Scheduler struct {
	cron     *cron.Cron
	logger   *slog.Logger
	location *time.Location
	timeout  time.Duration
	entries  []cron.EntryID

	// ctx is the context of the current Run; jobs derive theirs from it.
	ctx context.Context //nolint:containedctx // bound to Run
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocation evaluates schedules in loc.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithJobTimeout bounds a single job run. Zero means no bound.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:   slog.Default(),
		location: KST,
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}

	cl := cronLogger{logger: s.logger}
	s.cron = cron.New(
		cron.WithLocation(s.location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return s
}

// Validate reports whether spec is a valid schedule.
func Validate(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Add registers job under name on the schedule spec.
func (s *Scheduler) Add(name, spec string, job Job) error {
	if err := Validate(spec); err != nil {
		return err
	}

	id, err := s.cron.AddFunc(spec, func() { s.runJob(name, job) })
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	s.entries = append(s.entries, id)
	s.logger.Debug("job scheduled", "job", name, "schedule", spec)
	return nil
}

// Next returns the earliest upcoming activation, or the zero time when
// the scheduler is not running.
func (s *Scheduler) Next() time.Time {
	var next time.Time
	for _, id := range s.entries {
		t := s.cron.Entry(id).Next
		if t.IsZero() {
			continue
		}
		if next.IsZero() || t.Before(next) {
			next = t
		}
	}
	return next
}

// Run starts the scheduler and blocks until ctx is done. It then waits
// for running jobs to return.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.entries) == 0 {
		return ErrNoJob
	}

	s.ctx = ctx
	s.cron.Start()
	s.logger.Info("scheduler started", "next", s.Next().Format(time.RFC3339))

	<-ctx.Done()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) runJob(name string, job Job) {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	s.logger.Info("job started", "job", name)
	if err := job(ctx); err != nil {
		s.logger.Error("job failed", "job", name, "error", err, "duration", time.Since(started))
		return
	}
	s.logger.Info("job finished", "job", name, "duration", time.Since(started))
}

// cronLogger adapts slog to the cron logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
