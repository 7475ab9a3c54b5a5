package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/samber/lo"

	"github.com/pders01/feedagg/internal/config"
	"github.com/pders01/feedagg/internal/debuglog"
	"github.com/pders01/feedagg/internal/plugins"
	"github.com/pders01/feedagg/internal/search"
	"github.com/pders01/feedagg/internal/storage"
	"github.com/pders01/feedagg/internal/validation"
)

// ExportOptions narrows Export. A non-nil empty FeedIDs matches nothing.
type ExportOptions struct {
	FeedIDs    []int64
	SinceHours int
	Limit      int
	Search     string
}

// Manager runs the persistence-backed crawl and turns stored rows back into
// items.
type Manager struct {
	store        storage.Store
	fetcher      *Fetcher
	parser       *Parser
	config       *config.Config
	urlValidator *validation.FeedURLValidator
	plugins      *plugins.Registry
	listener     search.UpdateListener
	now          func() time.Time
}

func NewManager(store storage.Store, cfg *config.Config) *Manager {
	return &Manager{
		store:        store,
		fetcher:      NewFetcher(cfg),
		parser:       NewParser(),
		config:       cfg,
		urlValidator: validation.NewFeedURLValidator(),
		plugins:      plugins.Default(),
		now:          time.Now,
	}
}

// SetForceRefresh configures the manager to ignore ETag/Last-Modified headers
func (m *Manager) SetForceRefresh(force bool) {
	m.fetcher.SetIgnoreCache(force)
}

// SetPermissiveValidation lets AddFeed accept loopback and private hosts.
func (m *Manager) SetPermissiveValidation(permissive bool) {
	if permissive {
		m.urlValidator = validation.NewPermissiveFeedURLValidator()
	} else {
		m.urlValidator = validation.NewFeedURLValidator()
	}
}

// SetUpdateListener registers l to be told about every successfully
// crawled feed and its items.
func (m *Manager) SetUpdateListener(l search.UpdateListener) {
	m.listener = l
}

// SetPlugins replaces the registry AddFeed uses to map site pages to feeds.
func (m *Manager) SetPlugins(r *plugins.Registry) {
	m.plugins = r
}

// SeedDefaults stores the built-in sources if the store has no feeds yet.
func (m *Manager) SeedDefaults() error {
	if err := m.store.SeedBuiltins(DefaultSources()); err != nil {
		return fmt.Errorf("seeding built-in feeds: %w", err)
	}
	return nil
}

// AddFeed validates and registers a user feed, then crawls it once. Site
// pages known to a plugin are replaced by their feed URL first.
func (m *Manager) AddFeed(ctx context.Context, rawURL, category string) (*storage.Feed, error) {
	normalizedURL, err := m.urlValidator.ValidateAndNormalize(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed URL: %w", err)
	}

	info, err := m.plugins.Resolve(ctx, normalizedURL)
	if err != nil {
		return nil, fmt.Errorf("resolving feed URL: %w", err)
	}
	if info.FeedURL != normalizedURL {
		debuglog.Infof("resolved %s to %s", normalizedURL, info.FeedURL)
	}

	id, err := m.store.AddFeed(info.FeedURL, category, false)
	if err != nil {
		return nil, fmt.Errorf("saving feed: %w", err)
	}

	feed, err := m.store.GetFeed(id)
	if err != nil {
		return nil, fmt.Errorf("loading feed: %w", err)
	}

	if info.Title != "" && feed.Title == "" {
		if err := m.store.UpdateFeedMeta(id, storage.FeedMeta{Title: &info.Title}); err != nil {
			return nil, fmt.Errorf("saving feed title: %w", err)
		}
		feed.Title = info.Title
	}

	if feed.Active {
		m.crawlFeed(ctx, feed)
	}

	return m.store.GetFeed(id)
}

// Crawl fetches every active feed once and stores what it finds. The count
// is the number of items seen across all feeds, inserted or updated. Only a
// failure to list feeds is returned; per-feed problems are logged.
func (m *Manager) Crawl(ctx context.Context) (int, error) {
	feeds, err := m.store.ListFeeds(true)
	if err != nil {
		return 0, fmt.Errorf("listing feeds: %w", err)
	}

	counts := runOrdered(ctx, m.config.Feed.Workers, feeds, m.crawlFeed)
	return lo.Sum(counts), nil
}

func (m *Manager) crawlFeed(ctx context.Context, feed *storage.Feed) int {
	logger := debuglog.WithFields(map[string]interface{}{
		"feed_id": feed.ID,
		"url":     feed.URL,
	})

	resp, err := m.fetcher.Fetch(ctx, feed.URL, Validators{
		ETag:         feed.ETag,
		LastModified: feed.LastModified,
	})
	if err != nil {
		logger.Warnf("fetch failed: %v", err)
		m.touch(feed)
		return 0
	}

	switch {
	case resp.NotModified():
		logger.Debugf("not modified")
		m.touch(feed)
		return 0
	case resp.StatusCode != http.StatusOK:
		logger.Warnf("unexpected status %d", resp.StatusCode)
		m.touch(feed)
		return 0
	case len(resp.Body) == 0:
		logger.Debugf("empty body")
		m.touch(feed)
		return 0
	}

	parsed, err := m.parser.Parse(resp.Body, feed.URL)
	if err != nil {
		m.touch(feed)
		return 0
	}

	now := m.now()
	meta := storage.FeedMeta{LastCheckedAt: &now}
	if parsed.Title != "" {
		meta.Title = &parsed.Title
	}
	if parsed.SiteLink != "" {
		meta.SiteLink = &parsed.SiteLink
	}
	if etag := resp.Header.Get("ETag"); etag != "" {
		meta.ETag = &etag
	}
	if lastMod := resp.Header.Get("Last-Modified"); lastMod != "" {
		meta.LastModified = &lastMod
	}
	if err := m.store.UpdateFeedMeta(feed.ID, meta); err != nil {
		logger.Errorf("updating feed metadata: %v", err)
	}

	stored := make([]*storage.Item, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if err := m.store.UpsertItem(feed.ID, storage.ItemUpsert{
			Link:      it.Link,
			Title:     it.Title,
			Summary:   it.Summary,
			Published: it.Published,
			GUID:      it.GUID,
		}); err != nil {
			logger.Errorf("storing item %q: %v", it.Link, err)
			continue
		}
		stored = append(stored, &storage.Item{
			FeedID:    feed.ID,
			GUID:      it.GUID,
			Title:     it.Title,
			Link:      it.Link,
			Summary:   it.Summary,
			Published: it.Published,
		})
	}

	if m.listener != nil {
		if parsed.Title != "" {
			feed.Title = parsed.Title
		}
		m.listener.OnItemsUpdated(feed, stored)
	}

	logger.Infof("crawled %d items", len(parsed.Items))
	return len(parsed.Items)
}

func (m *Manager) touch(feed *storage.Feed) {
	now := m.now()
	if err := m.store.UpdateFeedMeta(feed.ID, storage.FeedMeta{LastCheckedAt: &now}); err != nil {
		debuglog.WithFields(map[string]interface{}{
			"feed_id": feed.ID,
		}).Errorf("recording check time: %v", err)
	}
}

// FeedIDsForCategory returns the ids of active feeds in category. The
// result is never nil, so an unknown category exports nothing.
func (m *Manager) FeedIDsForCategory(category string) ([]int64, error) {
	feeds, err := m.store.ListFeeds(true)
	if err != nil {
		return nil, fmt.Errorf("listing feeds: %w", err)
	}
	ids := lo.FilterMap(feeds, func(f *storage.Feed, _ int) (int64, bool) {
		return f.ID, f.Category == category
	})
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

// Export reads stored items back as Items, labelled with their feed's title
// or host.
func (m *Manager) Export(opts ExportOptions) ([]Item, error) {
	rows, err := m.store.QueryItems(storage.ItemQuery{
		FeedIDs:    opts.FeedIDs,
		SinceHours: opts.SinceHours,
		Limit:      opts.Limit,
		Search:     opts.Search,
	})
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}

	feeds, err := m.store.ListFeeds(false)
	if err != nil {
		return nil, fmt.Errorf("listing feeds: %w", err)
	}
	byID := lo.KeyBy(feeds, func(f *storage.Feed) int64 { return f.ID })

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		title := row.Title
		if title == "" {
			title = row.Link
		}
		items = append(items, Item{
			Title:     title,
			Link:      row.Link,
			Published: row.Published,
			Source:    feedLabel(byID[row.FeedID]),
			Summary:   row.Summary,
			GUID:      row.GUID,
		})
	}
	return items, nil
}

func feedLabel(f *storage.Feed) string {
	if f == nil {
		return "unknown"
	}
	if f.Title != "" {
		return f.Title
	}
	if u, err := url.Parse(f.URL); err == nil && u.Host != "" {
		return u.Host
	}
	return "unknown"
}
