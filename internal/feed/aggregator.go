package feed

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/pders01/feedagg/internal/config"
	"github.com/pders01/feedagg/internal/debuglog"
)

// Options narrows an aggregation run. Zero values disable a filter.
type Options struct {
	Category   string
	SinceHours int
	Limit      int
}

// Aggregator fetches a source list directly, without persistence, and
// merges the results in memory.
type Aggregator struct {
	fetcher *Fetcher
	parser  *Parser
	workers int
	now     func() time.Time
}

func NewAggregator(cfg *config.Config) *Aggregator {
	return &Aggregator{
		fetcher: NewFetcher(cfg),
		parser:  NewParser(),
		workers: cfg.Feed.Workers,
		now:     time.Now,
	}
}

func (a *Aggregator) Aggregate(ctx context.Context, sources Sources, opts Options) []Item {
	urls := CategoryURLs(sources, opts.Category)

	perSource := runOrdered(ctx, a.workers, urls, a.fetchItems)

	seen := make(map[string]struct{})
	var items []Item
	for _, batch := range perSource {
		for _, it := range batch {
			key := dedupKey(it)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			items = append(items, it)
		}
	}

	if opts.SinceHours > 0 {
		cutoff := a.now().Add(-time.Duration(opts.SinceHours) * time.Hour)
		items = lo.Filter(items, func(it Item, _ int) bool {
			return it.Published == nil || !it.Published.Before(cutoff)
		})
	}

	SortItems(items)

	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	if items == nil {
		items = []Item{}
	}
	return items
}

func (a *Aggregator) fetchItems(ctx context.Context, url string) []Item {
	logger := debuglog.WithFields(map[string]interface{}{"url": url})

	resp, err := a.fetcher.Fetch(ctx, url, Validators{})
	if err != nil {
		logger.Warnf("fetch failed: %v", err)
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		logger.Warnf("unexpected status %d", resp.StatusCode)
		return nil
	}
	if len(resp.Body) == 0 {
		return nil
	}

	parsed, err := a.parser.Parse(resp.Body, url)
	if err != nil {
		return nil
	}
	return parsed.Items
}

// dedupKey identifies an item across sources: its link, or title and
// publish time when the link is empty.
func dedupKey(it Item) string {
	if it.Link != "" {
		return it.Link
	}
	published := ""
	if it.Published != nil {
		published = it.Published.Format(time.RFC3339)
	}
	return it.Title + "|" + published
}

// SortItems orders items newest first with undated items last. The sort is
// stable so equal keys keep their merge order.
func SortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := items[i].Published, items[j].Published
		switch {
		case pi == nil:
			return false
		case pj == nil:
			return true
		default:
			return pi.After(*pj)
		}
	})
}
