package search

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/feedagg/internal/storage"
)

// seededStore returns a SQLite store with one feed and three items.
func seededStore(t *testing.T) (storage.Store, int64) {
	t.Helper()
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	id, err := store.AddFeed("https://blog.test/feed", "tech", false)
	require.NoError(t, err)
	title := "Test Blog"
	require.NoError(t, store.UpdateFeedMeta(id, storage.FeedMeta{Title: &title}))

	pub := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, it := range []storage.ItemUpsert{
		{Link: "https://blog.test/1", Title: "Hello World", Summary: "greeting post", Published: &pub},
		{Link: "https://blog.test/2", Title: "Golang Tips", Summary: "using bleve for full text search"},
		{Link: "https://blog.test/3", Title: "Unrelated", Summary: "nothing to see"},
	} {
		require.NoError(t, store.UpsertItem(id, it))
	}
	return store, id
}

func TestSearchMinLength(t *testing.T) {
	store, _ := seededStore(t)
	engine := NewEngine(store)

	tests := []struct {
		name  string
		query string
	}{
		{name: "Empty query", query: ""},
		{name: "Single character query", query: "a"},
		{name: "Whitespace only", query: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := engine.Search(tt.query, 10)
			assert.NoError(t, err)
			assert.NotNil(t, results)
			assert.Empty(t, results, "short queries should return empty results")
		})
	}
}

func TestEngineSearch(t *testing.T) {
	store, feedID := seededStore(t)
	engine := NewEngine(store)

	results, err := engine.Search("golang", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Golang Tips", results[0].Item.Title)
	require.NotNil(t, results[0].Feed)
	assert.Equal(t, feedID, results[0].Feed.ID)
	assert.Equal(t, "Test Blog", results[0].Feed.Title)
}

func TestEngineSearch_TitleOutranksSummary(t *testing.T) {
	store, feedID := seededStore(t)
	require.NoError(t, store.UpsertItem(feedID, storage.ItemUpsert{
		Link: "https://blog.test/4", Title: "Greeting cards", Summary: "paper",
	}))
	engine := NewEngine(store)

	results, err := engine.Search("greeting", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Greeting cards", results[0].Item.Title)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestEngineSearch_Limit(t *testing.T) {
	store, _ := seededStore(t)
	engine := NewEngine(store)

	results, err := engine.Search("hello golang unrelated", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Hello, World!", []string{"hello", "world"}},
		{"a b cd", []string{"cd"}},
		{"Go1.24 release", []string{"go1", "24", "release"}},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tokenize(tt.in), tt.in)
	}
}

func TestScoreField(t *testing.T) {
	assert.Zero(t, scoreField("", []string{"go"}, 1))
	assert.Zero(t, scoreField("nothing here", []string{"golang"}, 1))

	exact := scoreField("golang news", []string{"golang"}, 1)
	partial := scoreField("golangish news", []string{"golang"}, 1)
	assert.Greater(t, exact, partial)

	weighted := scoreField("golang news", []string{"golang"}, 4)
	assert.InDelta(t, exact*4, weighted, 1e-9)
}
