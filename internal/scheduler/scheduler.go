package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/yairfalse/vahti/internal/logger"
	"github.com/yairfalse/vahti/internal/monitor"
)

// HostChecker runs drift checks for a set of hosts
type HostChecker interface {
	CheckHosts(ctx context.Context, hostIDs []string, concurrency int) ([]*monitor.Result, error)
}

// Config holds configuration for the scheduler
type Config struct {
	// Spec is a standard five-field cron expression or a descriptor such as
	// "@every 15m" or "@hourly"
	Spec        string
	Hosts       []string
	Concurrency int
	Logger      logger.Logger
	OnResults   func([]*monitor.Result, error)
}

// Scheduler periodically re-checks a fixed set of hosts. Runs never overlap:
// a tick that fires while the previous run is still going is skipped.
type Scheduler struct {
	cron   *cron.Cron
	config Config
	log    logger.Logger

	mu   sync.Mutex
	runs int
}

// New validates the cron expression and creates a scheduler
func New(checker HostChecker, config Config) (*Scheduler, error) {
	if checker == nil {
		return nil, fmt.Errorf("scheduler requires a host checker")
	}
	if len(config.Hosts) == 0 {
		return nil, fmt.Errorf("scheduler requires at least one host")
	}
	if config.Logger == nil {
		config.Logger = logger.NewNop()
	}

	schedule, err := cron.ParseStandard(config.Spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", config.Spec, err)
	}

	s := &Scheduler{
		config: config,
		log:    config.Logger.WithField("schedule", config.Spec),
	}
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	s.cron.Schedule(schedule, cron.FuncJob(func() {
		s.RunOnce(context.Background(), checker)
	}))
	return s, nil
}

// RunOnce checks every configured host once
func (s *Scheduler) RunOnce(ctx context.Context, checker HostChecker) {
	s.mu.Lock()
	s.runs++
	run := s.runs
	s.mu.Unlock()

	log := s.log.WithField("run", run)
	log.Info("scheduled drift check started")

	results, err := checker.CheckHosts(ctx, s.config.Hosts, s.config.Concurrency)
	if err != nil {
		log.Error("scheduled drift check failed", err)
	}

	drifted := 0
	for _, r := range results {
		if r != nil && !r.Changes.IsEmpty() {
			drifted++
		}
	}
	log.WithFields(map[string]interface{}{
		"hosts":   len(s.config.Hosts),
		"drifted": drifted,
	}).Info("scheduled drift check finished")

	if s.config.OnResults != nil {
		s.config.OnResults(results, err)
	}
}

// Runs returns how many runs have started
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// Start runs the schedule until ctx is cancelled, then waits for a running
// check to finish
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron.Start()
	s.log.Info("scheduler started")

	<-ctx.Done()

	stopped := s.cron.Stop()
	<-stopped.Done()
	s.log.Info("scheduler stopped")
	return nil
}
