package plugins

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinPlugins(t *testing.T) {
	registry := Default()

	tests := []struct {
		name      string
		url       string
		expectURL string
		expectTitle string
	}{
		{
			name:      "subreddit",
			url:       "https://www.reddit.com/r/golang",
			expectURL: "https://www.reddit.com/r/golang/.rss",
			expectTitle: "Reddit - r/golang",
		},
		{
			name:      "subreddit without www and with sort path",
			url:       "https://reddit.com/r/programming/top/",
			expectURL: "https://www.reddit.com/r/programming/.rss",
			expectTitle: "Reddit - r/programming",
		},
		{
			name:      "subreddit feed is left alone",
			url:       "https://www.reddit.com/r/golang/.rss",
			expectURL: "https://www.reddit.com/r/golang/.rss",
		},
		{
			name:      "reddit user page is left alone",
			url:       "https://www.reddit.com/user/someuser",
			expectURL: "https://www.reddit.com/user/someuser",
		},
		{
			name:      "youtube channel",
			url:       "https://www.youtube.com/channel/UC123abc",
			expectURL: "https://www.youtube.com/feeds/videos.xml?channel_id=UC123abc",
			expectTitle: "YouTube - UC123abc",
		},
		{
			name:      "youtube playlist",
			url:       "https://youtube.com/playlist?list=PL42",
			expectURL: "https://www.youtube.com/feeds/videos.xml?playlist_id=PL42",
			expectTitle: "YouTube playlist - PL42",
		},
		{
			name:      "youtube handle is left alone",
			url:       "https://www.youtube.com/@someone",
			expectURL: "https://www.youtube.com/@someone",
		},
		{
			name:      "github repository",
			url:       "https://github.com/pders01/feedagg.git",
			expectURL: "https://github.com/pders01/feedagg/releases.atom",
			expectTitle: "GitHub releases - pders01/feedagg",
		},
		{
			name:      "github deep link is left alone",
			url:       "https://github.com/pders01/feedagg/issues",
			expectURL: "https://github.com/pders01/feedagg/issues",
		},
		{
			name:      "unrelated host",
			url:       "https://example.com/r/golang",
			expectURL: "https://example.com/r/golang",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := registry.Resolve(context.Background(), tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.url, info.OriginalURL)
			assert.Equal(t, tt.expectURL, info.FeedURL)
			assert.Equal(t, tt.expectTitle, info.Title)
		})
	}
}
