// Package feed discovers the episode to process from the podcast RSS
// feed. It is plain I/O plumbing around gofeed with the one policy
// decision the bot needs: optionally skipping the standing intro
// episode that some feeds pin first.
package feed

import (
	"context"
	"fmt"
	"strings"

	log "github.com/go-pkgz/lgr"
	"github.com/mmcdole/gofeed"
)

// EpisodeInfo is the immutable per-run episode record. Created once
// here and read-only for every later stage.
type EpisodeInfo struct {
	Title         string
	AudioURL      string
	PublishedDate string
	Filename      string
}

// Fetcher pulls the latest episode from an RSS feed.
type Fetcher struct {
	url       string
	skipIntro bool
	parser    *gofeed.Parser
}

// New creates a fetcher for the given feed URL. With skipIntro set the
// second entry is used when the feed has more than one, since entry
// zero is the standing introduction.
func New(url string, skipIntro bool) *Fetcher {
	return &Fetcher{url: url, skipIntro: skipIntro, parser: gofeed.NewParser()}
}

// Latest fetches and parses the feed and returns the episode to process.
func (f *Fetcher) Latest(ctx context.Context) (*EpisodeInfo, error) {
	parsed, err := f.parser.ParseURLWithContext(f.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("feed: parse %s: %w", f.url, err)
	}
	if parsed == nil || len(parsed.Items) == 0 {
		return nil, fmt.Errorf("feed: %s contains no items", f.url)
	}

	item := parsed.Items[0]
	if f.skipIntro && len(parsed.Items) > 1 {
		item = parsed.Items[1]
	}

	audioURL, err := audioURL(item)
	if err != nil {
		return nil, err
	}

	title := sanitizeTitle(item.Title)
	published := item.Published
	if published == "" {
		published = "Unknown date"
	}

	log.Printf("[INFO] feed: episode %q published %s", title, published)

	return &EpisodeInfo{
		Title:         title,
		AudioURL:      audioURL,
		PublishedDate: published,
		Filename:      title + ".mp3",
	}, nil
}

// audioURL picks the audio enclosure, falling back to any link with an
// audio media type.
func audioURL(item *gofeed.Item) (string, error) {
	for _, enc := range item.Enclosures {
		if enc.URL != "" {
			return enc.URL, nil
		}
	}
	for _, ext := range item.Extensions["media"]["content"] {
		if url, ok := ext.Attrs["url"]; ok && strings.Contains(ext.Attrs["type"], "audio") {
			return url, nil
		}
	}
	return "", fmt.Errorf("feed: item %q has no audio enclosure", item.Title)
}

// sanitizeTitle makes the episode title safe to use as a filename.
var titleSanitizer = strings.NewReplacer("/", "-", ":", "-", "?", "")

func sanitizeTitle(title string) string {
	return strings.TrimSpace(titleSanitizer.Replace(title))
}
