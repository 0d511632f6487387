package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"rss2x/internal/config"
	"rss2x/internal/dispatch"
	"rss2x/internal/feed"
	"rss2x/internal/publish"
	"rss2x/internal/run"
	"rss2x/internal/scheduler"
	"rss2x/internal/store"
)

type options struct {
	Accounts string `short:"a" long:"accounts" description:"Path to the YAML accounts file; numbered env blocks are used when omitted" env:"ACCOUNTS_FILE"`
	DBPath   string `long:"db"       description:"Path to the SQLite dedup database; overrides DB_PATH"`
	Schedule string `long:"schedule" description:"Cron spec; when set, the process stays up and polls on schedule"`
	Verbose  bool   `short:"v" long:"verbose" description:"Enable debug logging"`
}

func main() {
	os.Exit(realMain())
}

func realMain() int {
	var opts options

	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return 0
		}
		return 2
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settings, err := config.LoadSettings()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load settings",
			"error", err)

		return 1
	}

	cfg, err := loadAccounts(opts, settings)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load accounts",
			"error", err,
			"accountsFile", opts.Accounts)

		return 1
	}
	log.InfoContext(ctx, "Accounts are loaded",
		"accounts", len(cfg.Accounts),
		"skippedAccounts", len(cfg.Skipped))

	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = settings.DBPath
	}

	dedupStore, err := store.New(ctx, dbPath, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize dedup store",
			"error", err,
			"dbPath", dbPath)

		return 1
	}
	defer func() {
		if err = dedupStore.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close dedup store",
				"error", err,
				"dbPath", dbPath)
		}
	}()
	log.InfoContext(ctx, "Dedup store is initialized",
		"dbPath", dbPath)

	runner := run.New(
		feed.NewFetcher(log),
		dispatch.New(dedupStore, log),
		newPublisherFactory(log),
		log,
	)

	if opts.Schedule != "" {
		return runScheduled(ctx, cancel, runner, cfg, opts.Schedule, start, log)
	}

	summary := runner.Run(ctx, cfg)
	if summary.Failed() {
		return 1
	}

	return 0
}

func loadAccounts(opts options, settings config.Settings) (*config.LoadResult, error) {
	if opts.Accounts != "" {
		return config.LoadFile(opts.Accounts, settings.PostDelay())
	}

	return config.LoadEnv(settings.PostDelay())
}

func newPublisherFactory(log *slog.Logger) run.PublisherFactory {
	return func(account config.Account) (publish.Publisher, error) {
		switch account.Platform {
		case config.PlatformTelegram:
			return publish.NewTelegramPublisher(account.Credentials, log)
		default:
			return publish.NewXPublisher(account.Credentials, log), nil
		}
	}
}

func runScheduled(
	ctx context.Context,
	cancel context.CancelFunc,
	runner *run.Runner,
	cfg *config.LoadResult,
	spec string,
	start time.Time,
	log *slog.Logger,
) int {
	sched := scheduler.New(ctx, runner, cfg, spec, log)

	if err := sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"spec", spec)

		return 1
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"spec", spec,
		"timezone", "UTC")

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	sig := <-c
	log.InfoContext(ctx, "Shutdown signal is received",
		"signal", sig.String())
	cancel()

	log.InfoContext(ctx, "Exiting...",
		"signal", sig.String(),
		"uptimeSeconds", time.Since(start).Seconds())

	return 0
}
