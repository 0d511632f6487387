package run

import (
	"context"
	"log/slog"

	"rss2x/internal/config"
	"rss2x/internal/dispatch"
	"rss2x/internal/feed"
	"rss2x/internal/publish"
)

// Fetcher retrieves one feed URL as an ordered entry sequence.
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]feed.Entry, error)
}

// Dispatcher posts the unseen entries of one feed for one account.
type Dispatcher interface {
	Dispatch(
		ctx context.Context,
		account config.Account,
		publisher publish.Publisher,
		feedURL string,
		entries []feed.Entry,
	) (dispatch.Result, error)
}

// PublisherFactory builds the API client for one account's credentials.
type PublisherFactory func(account config.Account) (publish.Publisher, error)

// AccountSummary aggregates one account's pass.
type AccountSummary struct {
	EntriesSeen   int
	EntriesPosted int
	Errors        int
	// Fatal is set when the dedup store failed and the account pass was
	// aborted to avoid duplicate posts.
	Fatal bool
}

// Summary aggregates one full run across all accounts.
type Summary struct {
	Accounts map[string]*AccountSummary
	Skipped  int
}

// Failed reports whether any account hit a fatal error. Per-feed and
// per-entry errors do not fail the run.
func (s *Summary) Failed() bool {
	for _, account := range s.Accounts {
		if account.Fatal {
			return true
		}
	}
	return false
}

func (s *Summary) Totals() (seen, posted, errors int) {
	for _, account := range s.Accounts {
		seen += account.EntriesSeen
		posted += account.EntriesPosted
		errors += account.Errors
	}
	return seen, posted, errors
}

// Runner iterates accounts in their fixed order and drives one fetch and
// dispatch pass per feed.
type Runner struct {
	fetcher      Fetcher
	dispatcher   Dispatcher
	newPublisher PublisherFactory
	log          *slog.Logger
}

func New(
	fetcher Fetcher,
	dispatcher Dispatcher,
	newPublisher PublisherFactory,
	log *slog.Logger,
) *Runner {
	return &Runner{
		fetcher:      fetcher,
		dispatcher:   dispatcher,
		newPublisher: newPublisher,
		log:          log,
	}
}

// Run executes one full pass. Rejected configuration records are logged and
// counted; they never reach the fetcher.
func (r *Runner) Run(ctx context.Context, cfg *config.LoadResult) *Summary {
	summary := &Summary{
		Accounts: make(map[string]*AccountSummary, len(cfg.Accounts)),
		Skipped:  len(cfg.Skipped),
	}

	for _, skipped := range cfg.Skipped {
		r.log.ErrorContext(ctx, "Skipping invalid account",
			"error", skipped.Err,
			"account", skipped.Name)
	}

	for _, account := range cfg.Accounts {
		summary.Accounts[account.Name] = r.runAccount(ctx, account)
	}

	seen, posted, errs := summary.Totals()
	r.log.InfoContext(ctx, "Run finished",
		"accounts", len(cfg.Accounts),
		"skippedAccounts", summary.Skipped,
		"entriesSeen", seen,
		"entriesPosted", posted,
		"errors", errs,
		"failed", summary.Failed())

	return summary
}

func (r *Runner) runAccount(ctx context.Context, account config.Account) *AccountSummary {
	acct := &AccountSummary{}

	publisher, err := r.newPublisher(account)
	if err != nil {
		acct.Errors++
		r.log.ErrorContext(ctx, "Failed to create API client, skipping account",
			"error", err,
			"account", account.Name)

		return acct
	}

	for _, feedURL := range account.FeedURLs {
		entries, err := r.fetcher.Fetch(ctx, feedURL)
		if err != nil {
			// Per-feed isolation: the account continues with its next feed.
			acct.Errors++
			r.log.ErrorContext(ctx, "Failed to fetch feed",
				"error", err,
				"account", account.Name,
				"feedURL", feedURL)

			continue
		}

		result, err := r.dispatcher.Dispatch(ctx, account, publisher, feedURL, entries)
		acct.EntriesSeen += result.Seen
		acct.EntriesPosted += result.Posted
		acct.Errors += result.Errors

		if err == nil {
			continue
		}

		if publish.IsAuth(err) {
			r.log.ErrorContext(ctx, "Credentials rejected, skipping remaining feeds",
				"error", err,
				"account", account.Name,
				"feedURL", feedURL)

			break
		}

		acct.Fatal = true
		r.log.ErrorContext(ctx, "Dedup store failed, aborting account",
			"error", err,
			"account", account.Name,
			"feedURL", feedURL)

		break
	}

	return acct
}
