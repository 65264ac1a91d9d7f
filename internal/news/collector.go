// Package news collects topic material from RSS and Atom feeds.
package news

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"threadgenius/internal/logging"
	"threadgenius/internal/util"
)

const summaryChars = 200

// Item is one feed entry.
type Item struct {
	Title     string
	Summary   string
	Link      string
	Published time.Time
	Source    string
}

// Collector reads a fixed list of feeds.
type Collector struct {
	Feeds  []string
	parser *gofeed.Parser
}

func NewCollector(feeds []string) *Collector {
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: 15 * time.Second}
	return &Collector{Feeds: feeds, parser: p}
}

// Collect fetches every feed, keeps items matching any keyword (all items when keywords is empty),
// and returns up to limit items, newest first. Feeds that fail are logged and skipped.
func (c *Collector) Collect(ctx context.Context, limit int, keywords []string) []Item {
	var all []Item
	for _, url := range c.Feeds {
		feed, err := c.parser.ParseURLWithContext(url, ctx)
		if err != nil {
			logging.Warn("feed_error", map[string]any{"feed": url, "error": err.Error()})
			continue
		}
		for _, e := range feed.Items {
			it := Item{Title: strings.TrimSpace(e.Title), Summary: strings.TrimSpace(e.Description), Link: e.Link, Source: url}
			if e.PublishedParsed != nil {
				it.Published = e.PublishedParsed.UTC()
			} else if e.UpdatedParsed != nil {
				it.Published = e.UpdatedParsed.UTC()
			}
			if len(keywords) > 0 && !util.ContainsAny(it.Title, keywords) && !util.ContainsAny(it.Summary, keywords) {
				continue
			}
			all = append(all, it)
		}
	}
	slices.SortStableFunc(all, func(a, b Item) int { return b.Published.Compare(a.Published) })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	logging.Debug("news_collected", map[string]any{"feeds": len(c.Feeds), "items": len(all)})
	return all
}

// FormatForPrompt renders an item as topic material for the draft prompt.
func FormatForPrompt(it Item) string {
	published := "不明"
	if !it.Published.IsZero() {
		published = it.Published.Format("2006-01-02 15:04")
	}
	return fmt.Sprintf("【ニュース】\nタイトル: %s\n概要: %s\nソース: %s\n公開日: %s",
		it.Title, util.Truncate(it.Summary, summaryChars), it.Link, published)
}
