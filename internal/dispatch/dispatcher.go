package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"rss2x/internal/config"
	"rss2x/internal/feed"
	"rss2x/internal/publish"
)

// Store is the slice of the dedup keyspace the dispatcher needs.
type Store interface {
	HasPosted(ctx context.Context, account string, link string) (bool, error)
	MarkPosted(ctx context.Context, account string, link string) error
}

// Result counts one (account, feed) pass.
type Result struct {
	Seen   int
	Posted int
	Errors int
}

// Dispatcher posts the unseen entries of one feed, oldest first, strictly
// sequentially, marking each success in the store before the post delay.
type Dispatcher struct {
	store Store
	sleep func(time.Duration)
	log   *slog.Logger
}

func New(store Store, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store: store,
		sleep: time.Sleep,
		log:   log,
	}
}

// Dispatch runs one pass. Per-entry publish failures are counted and the
// pass continues. A non-nil error means the account must stop: either the
// API rejected the credentials (publish.IsAuth) or the store failed.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	account config.Account,
	publisher publish.Publisher,
	feedURL string,
	entries []feed.Entry,
) (Result, error) {
	result := Result{Seen: len(entries)}

	pending, err := d.filter(ctx, account.Name, feedURL, entries)
	if err != nil {
		result.Errors++
		return result, fmt.Errorf("filter entries: %w", err)
	}

	// Oldest first. The sort is stable, so entries sharing a timestamp
	// keep the feed's native order.
	slices.SortStableFunc(pending, func(a, b feed.Entry) int {
		return a.Published.Compare(*b.Published)
	})

	for _, entry := range pending {
		post := publish.BuildPost(account.Format, entry)

		if err := publisher.Publish(ctx, post); err != nil {
			result.Errors++
			d.log.ErrorContext(ctx, "Failed to publish entry",
				"error", err,
				"account", account.Name,
				"feedURL", feedURL,
				"entryLink", entry.Link)

			if publish.IsAuth(err) {
				return result, fmt.Errorf("publish entry %s: %w", entry.Link, err)
			}

			continue
		}

		// Persist before the delay so a crash mid-sleep cannot cause a
		// repost on the next run.
		if err := d.store.MarkPosted(ctx, account.Name, entry.Link); err != nil {
			result.Errors++
			return result, fmt.Errorf("mark posted %s: %w", entry.Link, err)
		}

		result.Posted++
		d.log.InfoContext(ctx, "Posted entry",
			"account", account.Name,
			"feedURL", feedURL,
			"entryLink", entry.Link,
			"delay", account.PostDelay)

		d.sleep(account.PostDelay)
	}

	return result, nil
}

func (d *Dispatcher) filter(
	ctx context.Context,
	accountName string,
	feedURL string,
	entries []feed.Entry,
) ([]feed.Entry, error) {
	var pending []feed.Entry

	for _, entry := range entries {
		if entry.Published == nil {
			// Without a timestamp the entry cannot be ordered; treating
			// it as new would risk posting out of order.
			d.log.WarnContext(ctx, "Skipping entry without timestamp",
				"account", accountName,
				"feedURL", feedURL,
				"entryLink", entry.Link)

			continue
		}

		posted, err := d.store.HasPosted(ctx, accountName, entry.Link)
		if err != nil {
			return nil, fmt.Errorf("check posted: %w", err)
		}
		if posted {
			continue
		}

		pending = append(pending, entry)
	}

	return pending, nil
}
