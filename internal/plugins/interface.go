package plugins

import (
	"context"
	"fmt"
	"net/url"
)

// FeedInfo is what a plugin knows about a URL before it is crawled.
type FeedInfo struct {
	// URL the user asked for
	OriginalURL string
	// URL of the actual RSS/Atom document
	FeedURL string
	// Placeholder title used until the first successful crawl
	Title string
}

// Plugin rewrites page URLs of a specific site into that site's feed URL,
// e.g. a subreddit page into its .rss endpoint.
type Plugin interface {
	Name() string

	CanHandle(u *url.URL) bool

	// Resolve must not mutate u.
	Resolve(ctx context.Context, u *url.URL) (*FeedInfo, error)

	// Priority breaks ties when several plugins match; higher wins.
	Priority() int
}

type Registry struct {
	plugins []Plugin
}

// NewRegistry returns a registry holding the given plugins.
func NewRegistry(plugins ...Plugin) *Registry {
	return &Registry{plugins: append([]Plugin(nil), plugins...)}
}

// Default returns a registry with the built-in site plugins.
func Default() *Registry {
	return NewRegistry(NewRedditPlugin(), NewYouTubePlugin(), NewGitHubPlugin())
}

func (r *Registry) Register(plugin Plugin) {
	r.plugins = append(r.plugins, plugin)
}

// FindPlugin returns the highest-priority plugin that can handle u. On
// equal priority the one registered first wins.
func (r *Registry) FindPlugin(u *url.URL) Plugin {
	var best Plugin
	highest := -1
	for _, p := range r.plugins {
		if p.Priority() > highest && p.CanHandle(u) {
			best = p
			highest = p.Priority()
		}
	}
	return best
}

// Resolve maps rawURL to its feed URL. URLs no plugin handles come back
// unchanged with an empty title.
func (r *Registry) Resolve(ctx context.Context, rawURL string) (*FeedInfo, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", rawURL, err)
	}

	plugin := r.FindPlugin(u)
	if plugin == nil {
		return &FeedInfo{OriginalURL: rawURL, FeedURL: rawURL}, nil
	}

	info, err := plugin.Resolve(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("%s plugin: %w", plugin.Name(), err)
	}
	info.OriginalURL = rawURL
	return info, nil
}

// ListPlugins returns a copy of the registered plugins.
func (r *Registry) ListPlugins() []Plugin {
	return append([]Plugin(nil), r.plugins...)
}
