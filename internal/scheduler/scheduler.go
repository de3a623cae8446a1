package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job represents a scheduled task
type Job func(ctx context.Context) error

// Scheduler runs jobs on cron schedules. A job never overlaps with itself:
// a tick that arrives while the previous run is still going is skipped.
type Scheduler struct {
	cron     *cron.Cron
	jobs     map[string]cron.EntryID
	timezone *time.Location
	logger   *slog.Logger

	// ctx is handed to every job run; cancelled by Stop
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new scheduler with the given timezone. An empty timezone
// means local time.
func New(timezone string, logger *slog.Logger) (*Scheduler, error) {
	loc := time.Local
	if timezone != "" {
		var err error
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger})),
	)

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:     c,
		jobs:     make(map[string]cron.EntryID),
		timezone: loc,
		logger:   logger.With("component", "scheduler"),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// AddJob adds a job with a cron schedule. Standard five-field specs and
// descriptors such as "@every 8m" are accepted.
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %s already scheduled", name)
	}
	entryID, err := s.cron.AddFunc(schedule, func() {
		s.run(s.ctx, name, job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	s.logger.Info("added job", "job", name, "schedule", schedule)
	return nil
}

func (s *Scheduler) run(ctx context.Context, name string, job Job) error {
	s.logger.Info("starting job", "job", name)
	start := time.Now()

	if err := job(ctx); err != nil {
		s.logger.Error("job failed", "job", name, "error", err)
		return err
	}
	s.logger.Info("job completed", "job", name, "took", time.Since(start).Round(time.Millisecond))
	return nil
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(name string) {
	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		s.logger.Info("removed job", "job", name)
	}
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", "timezone", s.timezone.String())
	s.cron.Start()
}

// Stop halts the scheduler and cancels running jobs. The returned context
// is done once they have returned.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("stopping scheduler")
	s.cancel()
	return s.cron.Stop()
}

// RunNow immediately executes a job outside its schedule
func (s *Scheduler) RunNow(ctx context.Context, name string, job Job) error {
	return s.run(ctx, name, job)
}

// Run executes job once, then on schedule until ctx is done. It returns
// after the in-flight run, if any, has finished.
func (s *Scheduler) Run(ctx context.Context, name, schedule string, job Job) error {
	if err := s.AddJob(name, schedule, job); err != nil {
		return err
	}
	s.RunNow(ctx, name, job)
	if ctx.Err() != nil {
		return nil
	}

	s.Start()
	for _, info := range s.ListJobs() {
		s.logger.Info("next run", "job", info.Name, "at", info.NextRun.Format(time.DateTime))
	}
	<-ctx.Done()
	<-s.Stop().Done()
	return nil
}

// ListJobs returns info about scheduled jobs
func (s *Scheduler) ListJobs() []JobInfo {
	entries := s.cron.Entries()
	infos := make([]JobInfo, 0, len(entries))

	for name, entryID := range s.jobs {
		for _, entry := range entries {
			if entry.ID == entryID {
				infos = append(infos, JobInfo{
					Name:    name,
					NextRun: entry.Next,
					LastRun: entry.Prev,
				})
				break
			}
		}
	}

	return infos
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}

// cronLogger adapts slog to cron.Logger
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
