package drain

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule fires at second zero of every second minute.
const DefaultSchedule = "0 */2 * * * *"

var parser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSchedule validates a six-field (seconds-first) cron expression or a
// descriptor such as "@every 30s".
func ParseSchedule(spec string) (cron.Schedule, error) {
	s, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return s, nil
}

// Cycler runs one drain cycle. *Drainer implements it.
type Cycler interface {
	Cycle(ctx context.Context)
}

// Scheduler triggers drain cycles on a cron schedule. A tick that fires
// while the previous cycle is still running is skipped.
type Scheduler struct {
	cycler     Cycler
	schedule   cron.Schedule
	runOnStart bool
	logger     *slog.Logger

	cron   *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler for spec. With runOnStart, one cycle runs
// immediately on Start.
func NewScheduler(c Cycler, spec string, runOnStart bool, logger *slog.Logger) (*Scheduler, error) {
	sched, err := ParseSchedule(spec)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cycler:     c,
		schedule:   sched,
		runOnStart: runOnStart,
		logger:     logger,
	}, nil
}

// Start begins scheduling. Cycles receive a context that is cancelled by
// Stop or when parent is done.
func (s *Scheduler) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel

	clog := cronLogger{logger: s.logger}
	job := cron.NewChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)).
		Then(cron.FuncJob(func() { s.cycler.Cycle(ctx) }))

	s.cron = cron.New(cron.WithLogger(clog))
	s.cron.Schedule(s.schedule, job)
	s.cron.Start()

	if s.runOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			job.Run()
		}()
	}
	s.logger.Info("drain scheduler started", "run_on_start", s.runOnStart)
}

// Stop cancels in-flight cycles and waits for them to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.wg.Wait()
}

// cronLogger routes cron's internal logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
