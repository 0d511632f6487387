package feed

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// entryImageURL picks a preview image for an item: the item image, then the
// first image enclosure, then the Media RSS content/thumbnail extension,
// then the first <img> in the item HTML.
func entryImageURL(item *gofeed.Item) string {
	if item.Image != nil {
		if u := strings.TrimSpace(item.Image.URL); u != "" {
			return u
		}
	}

	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		if strings.HasPrefix(enc.Type, "image/") {
			if u := strings.TrimSpace(enc.URL); u != "" {
				return u
			}
		}
	}

	if u := mediaExtensionImageURL(item); u != "" {
		return u
	}

	if u := firstImageSrc(item.Content); u != "" {
		return u
	}

	return firstImageSrc(item.Description)
}

func mediaExtensionImageURL(item *gofeed.Item) string {
	media, ok := item.Extensions["media"]
	if !ok {
		return ""
	}

	for _, name := range []string{"content", "thumbnail"} {
		for _, ext := range media[name] {
			u := strings.TrimSpace(ext.Attrs["url"])
			if u == "" {
				continue
			}

			medium := ext.Attrs["medium"]
			mimeType := ext.Attrs["type"]
			if name == "content" &&
				medium != "" && medium != "image" &&
				!strings.HasPrefix(mimeType, "image/") {
				continue
			}

			return u
		}
	}

	return ""
}

func firstImageSrc(html string) string {
	html = strings.TrimSpace(html)
	if html == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	src, _ := doc.Find("img[src]").First().Attr("src")

	return strings.TrimSpace(src)
}
