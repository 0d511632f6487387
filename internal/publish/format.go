package publish

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"mvdan.cc/xurls/v2"

	"rss2x/internal/config"
	"rss2x/internal/feed"
)

const (
	xPostMaxChars = 280
	// X wraps every URL with t.co regardless of its real length.
	xWrappedURLChars = 23

	truncationMarker = "…"
)

var urlRe = sync.OnceValue(func() *regexp.Regexp {
	return xurls.Strict()
})

// BuildPost maps an entry onto the account's payload variant.
func BuildPost(format string, entry feed.Entry) Post {
	post := Post{Link: entry.Link}

	switch format {
	case config.FormatLink:
	case config.FormatTitleLinkPreview:
		post.Title = entry.Title
		post.ImageURL = entry.ImageURL
	default:
		post.Title = entry.Title
	}

	return post
}

// StatusText composes the X status for a post, trimming the title so the
// whole status fits the 280-char budget.
func StatusText(post Post) string {
	title := strings.TrimSpace(post.Title)
	link := strings.TrimSpace(post.Link)

	if title == "" {
		return link
	}

	status := title + "\n" + link
	if PostLength(status) <= xPostMaxChars {
		return status
	}

	// Budget left for the title once the link and the newline are paid for.
	budget := xPostMaxChars - PostLength("\n"+link) - utf8.RuneCountInString(truncationMarker)
	if budget <= 0 {
		return link
	}

	runes := []rune(title)
	for len(runes) > 0 && postRuneLength(runes) > budget {
		runes = runes[:len(runes)-1]
	}

	title = strings.TrimSpace(string(runes))
	if title == "" {
		return link
	}

	return title + truncationMarker + "\n" + link
}

// PostLength counts a status the way X does: every URL costs the fixed
// t.co length, everything else costs its rune count.
func PostLength(s string) int {
	matches := urlRe().FindAllStringIndex(s, -1)

	length := 0
	last := 0
	for _, m := range matches {
		length += utf8.RuneCountInString(s[last:m[0]]) + xWrappedURLChars
		last = m[1]
	}

	return length + utf8.RuneCountInString(s[last:])
}

func postRuneLength(runes []rune) int {
	return PostLength(string(runes))
}
