package plugins

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

var errNoFeedPath = errors.New("URL does not name a feed source")

func hostIs(u *url.URL, hosts ...string) bool {
	h := strings.ToLower(u.Hostname())
	for _, want := range hosts {
		if h == want {
			return true
		}
	}
	return false
}

// pathSegments splits u's path, dropping empty segments.
func pathSegments(u *url.URL) []string {
	var out []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// RedditPlugin turns subreddit pages into their RSS feed.
type RedditPlugin struct{}

func NewRedditPlugin() *RedditPlugin { return &RedditPlugin{} }

func (p *RedditPlugin) Name() string  { return "reddit" }
func (p *RedditPlugin) Priority() int { return 50 }

func (p *RedditPlugin) CanHandle(u *url.URL) bool {
	segs := pathSegments(u)
	return hostIs(u, "reddit.com", "www.reddit.com", "old.reddit.com") &&
		len(segs) >= 2 && segs[0] == "r" && !strings.HasSuffix(u.Path, ".rss")
}

func (p *RedditPlugin) Resolve(_ context.Context, u *url.URL) (*FeedInfo, error) {
	segs := pathSegments(u)
	if len(segs) < 2 {
		return nil, errNoFeedPath
	}
	subreddit := segs[1]
	return &FeedInfo{
		FeedURL: "https://www.reddit.com/r/" + subreddit + "/.rss",
		Title:   "Reddit - r/" + subreddit,
	}, nil
}

// YouTubePlugin maps channel and playlist pages to YouTube's Atom feeds.
// Handle URLs (@name) need an API lookup and are left alone.
type YouTubePlugin struct{}

func NewYouTubePlugin() *YouTubePlugin { return &YouTubePlugin{} }

func (p *YouTubePlugin) Name() string  { return "youtube" }
func (p *YouTubePlugin) Priority() int { return 50 }

func (p *YouTubePlugin) CanHandle(u *url.URL) bool {
	if !hostIs(u, "youtube.com", "www.youtube.com", "m.youtube.com") {
		return false
	}
	segs := pathSegments(u)
	switch {
	case len(segs) >= 2 && segs[0] == "channel":
		return true
	case len(segs) == 1 && segs[0] == "playlist":
		return u.Query().Get("list") != ""
	}
	return false
}

func (p *YouTubePlugin) Resolve(_ context.Context, u *url.URL) (*FeedInfo, error) {
	const base = "https://www.youtube.com/feeds/videos.xml?"
	segs := pathSegments(u)
	if len(segs) >= 2 && segs[0] == "channel" {
		return &FeedInfo{
			FeedURL: base + url.Values{"channel_id": {segs[1]}}.Encode(),
			Title:   "YouTube - " + segs[1],
		}, nil
	}
	if list := u.Query().Get("list"); list != "" {
		return &FeedInfo{
			FeedURL: base + url.Values{"playlist_id": {list}}.Encode(),
			Title:   "YouTube playlist - " + list,
		}, nil
	}
	return nil, errNoFeedPath
}

// GitHubPlugin subscribes to a repository's releases.
type GitHubPlugin struct{}

func NewGitHubPlugin() *GitHubPlugin { return &GitHubPlugin{} }

func (p *GitHubPlugin) Name() string  { return "github" }
func (p *GitHubPlugin) Priority() int { return 40 }

func (p *GitHubPlugin) CanHandle(u *url.URL) bool {
	segs := pathSegments(u)
	return hostIs(u, "github.com", "www.github.com") && len(segs) == 2 &&
		!strings.HasSuffix(segs[1], ".atom")
}

func (p *GitHubPlugin) Resolve(_ context.Context, u *url.URL) (*FeedInfo, error) {
	segs := pathSegments(u)
	if len(segs) != 2 {
		return nil, errNoFeedPath
	}
	repo := segs[0] + "/" + strings.TrimSuffix(segs[1], ".git")
	return &FeedInfo{
		FeedURL: "https://github.com/" + repo + "/releases.atom",
		Title:   "GitHub releases - " + repo,
	}, nil
}
