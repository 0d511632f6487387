package publish_test

import (
	"strings"
	"testing"

	"rss2x/internal/config"
	"rss2x/internal/feed"
	"rss2x/internal/publish"
)

func TestBuildPostLinkOnly(t *testing.T) {
	entry := feed.Entry{
		Link:     "https://example.com/a",
		Title:    "Title",
		ImageURL: "https://example.com/a.jpg",
	}

	post := publish.BuildPost(config.FormatLink, entry)

	if post.Link != entry.Link {
		t.Fatalf("unexpected link: %q", post.Link)
	}
	if post.Title != "" || post.ImageURL != "" {
		t.Fatalf("expected bare link payload, got %+v", post)
	}
}

func TestBuildPostTitleLink(t *testing.T) {
	entry := feed.Entry{
		Link:     "https://example.com/a",
		Title:    "Title",
		ImageURL: "https://example.com/a.jpg",
	}

	post := publish.BuildPost(config.FormatTitleLink, entry)

	if post.Title != "Title" || post.Link != entry.Link {
		t.Fatalf("unexpected payload: %+v", post)
	}
	if post.ImageURL != "" {
		t.Fatalf("expected no image in title_link payload, got %q", post.ImageURL)
	}
}

func TestBuildPostTitleLinkPreview(t *testing.T) {
	entry := feed.Entry{
		Link:     "https://example.com/a",
		Title:    "Title",
		ImageURL: "https://example.com/a.jpg",
	}

	post := publish.BuildPost(config.FormatTitleLinkPreview, entry)

	if post.ImageURL != entry.ImageURL {
		t.Fatalf("expected image in preview payload, got %q", post.ImageURL)
	}
}

func TestStatusTextShortStatus(t *testing.T) {
	status := publish.StatusText(publish.Post{Title: "Hello", Link: "https://example.com/a"})

	if status != "Hello\nhttps://example.com/a" {
		t.Fatalf("unexpected status: %q", status)
	}
}

func TestStatusTextEmptyTitle(t *testing.T) {
	status := publish.StatusText(publish.Post{Link: "https://example.com/a"})

	if status != "https://example.com/a" {
		t.Fatalf("unexpected status: %q", status)
	}
}

func TestStatusTextTruncatesLongTitle(t *testing.T) {
	title := strings.Repeat("word ", 100)
	status := publish.StatusText(publish.Post{Title: title, Link: "https://example.com/a"})

	if publish.PostLength(status) > 280 {
		t.Fatalf("status exceeds budget: %d chars", publish.PostLength(status))
	}
	if !strings.HasSuffix(status, "\nhttps://example.com/a") {
		t.Fatalf("truncation must keep the link intact, got %q", status)
	}
	if !strings.Contains(status, "…") {
		t.Fatalf("expected truncation marker in %q", status)
	}
}

func TestPostLengthCountsURLsAsWrapped(t *testing.T) {
	// A very long URL still costs the fixed t.co length.
	longURL := "https://example.com/" + strings.Repeat("x", 200)

	if got := publish.PostLength(longURL); got != 23 {
		t.Fatalf("expected 23 for a single URL, got %d", got)
	}

	if got := publish.PostLength("hi\n" + longURL); got != 3+23 {
		t.Fatalf("expected 26, got %d", got)
	}
}

func TestPostLengthPlainText(t *testing.T) {
	if got := publish.PostLength("héllo"); got != 5 {
		t.Fatalf("expected rune count 5, got %d", got)
	}
}
