package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"rss2x/internal/config"
	"rss2x/internal/run"
)

const runTimeout = time.Hour

// Scheduler runs full poll-and-post passes on a cron spec. Passes never
// overlap: a tick that fires while the previous pass is still posting is
// skipped.
type Scheduler struct {
	ctx    context.Context
	cron   *cron.Cron
	runner *run.Runner
	cfg    *config.LoadResult
	spec   string
	mu     sync.Mutex
	log    *slog.Logger
}

func New(
	ctx context.Context,
	runner *run.Runner,
	cfg *config.LoadResult,
	spec string,
	log *slog.Logger,
) *Scheduler {
	c := cron.New(cron.WithLocation(time.UTC))

	return &Scheduler{
		ctx:    ctx,
		cron:   c,
		runner: runner,
		cfg:    cfg,
		spec:   spec,
		log:    log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.runPass); err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) runPass() {
	if !s.mu.TryLock() {
		s.log.WarnContext(s.ctx, "Previous pass still running, skipping tick",
			"spec", s.spec)
		return
	}
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, runTimeout)
	defer cancel()

	if ctx.Err() != nil {
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	}

	summary := s.runner.Run(ctx, s.cfg)

	if summary.Failed() {
		s.log.ErrorContext(ctx, "Scheduled pass hit a fatal account error",
			"spec", s.spec,
			"skippedAccounts", summary.Skipped)
	}
}
