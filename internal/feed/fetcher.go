package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Entry is one syndicated item, identified by its link. Entries are
// transient; only the link is ever persisted.
type Entry struct {
	Link      string
	Title     string
	Published *time.Time
	ImageURL  string
}

type Fetcher struct {
	parser *gofeed.Parser
	log    *slog.Logger
}

func NewFetcher(log *slog.Logger) *Fetcher {
	return &Fetcher{
		parser: gofeed.NewParser(),
		log:    log,
	}
}

// Fetch retrieves and parses one feed URL. The returned entries preserve
// the feed's native order; choosing a posting order is the dispatcher's
// concern.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]Entry, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return nil, errors.New("feed URL is empty")
	}

	parsed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed (URL = %s): %w", feedURL, err)
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		entry, ok := f.parseItem(ctx, feedURL, item)
		if !ok {
			continue
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

func (f *Fetcher) parseItem(
	ctx context.Context,
	feedURL string,
	item *gofeed.Item,
) (Entry, bool) {
	link := strings.TrimSpace(item.Link)
	if link == "" {
		f.log.WarnContext(ctx, "Skipping feed item with empty link",
			"feedURL", feedURL,
			"itemTitle", strings.TrimSpace(item.Title))

		return Entry{}, false
	}

	var published *time.Time
	if item.PublishedParsed != nil {
		published = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = item.UpdatedParsed
	}

	return Entry{
		Link:      link,
		Title:     strings.TrimSpace(item.Title),
		Published: published,
		ImageURL:  entryImageURL(item),
	}, true
}
