package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/feedagg/internal/storage"
)

func TestBleveEngineIndexesAndSearches(t *testing.T) {
	store, feedID := seededStore(t)

	idxPath := filepath.Join(t.TempDir(), "index.bleve")
	eng, err := NewBleveEngine(store, idxPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	n, err := eng.DocCount()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	res, err := eng.Search("Golang", 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(res), 1)
	assert.Equal(t, "https://blog.test/2", res[0].Item.Link)
	assert.Equal(t, feedID, res[0].Item.FeedID)
	require.NotNil(t, res[0].Feed)
	assert.Equal(t, "Test Blog", res[0].Feed.Title)

	res, err = eng.Search("bleve", 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(res), 1)

	res, err = eng.Search("hello", 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(res), 1)
	require.NotNil(t, res[0].Item.Published)

	fi, err := os.Stat(idxPath)
	require.NoError(t, err)
	require.True(t, fi.IsDir())
}

func TestBleveEngineOnItemsUpdated(t *testing.T) {
	store, feedID := seededStore(t)

	eng, err := NewBleveEngine(store, filepath.Join(t.TempDir(), "index.bleve"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	feed, err := store.GetFeed(feedID)
	require.NoError(t, err)

	eng.OnItemsUpdated(feed, []*storage.Item{
		{FeedID: feedID, Link: "https://blog.test/5", Title: "Zebra migration"},
		// re-sighting an existing link replaces its document
		{FeedID: feedID, Link: "https://blog.test/1", Title: "Hello again"},
	})

	n, err := eng.DocCount()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	res, err := eng.Search("zebra", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Zebra migration", res[0].Item.Title)
}

func TestBleveEngineReopen(t *testing.T) {
	store, _ := seededStore(t)
	idxPath := filepath.Join(t.TempDir(), "index.bleve")

	eng, err := NewBleveEngine(store, idxPath)
	require.NoError(t, err)
	require.NoError(t, eng.Close())

	eng, err = NewBleveEngine(store, idxPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	n, err := eng.DocCount()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestBleveEngineShortQuery(t *testing.T) {
	store, _ := seededStore(t)
	eng, err := NewBleveEngine(store, filepath.Join(t.TempDir(), "index.bleve"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	res, err := eng.Search("a", 10)
	require.NoError(t, err)
	assert.Empty(t, res)
}

var (
	_ Searcher       = (*BleveEngine)(nil)
	_ UpdateListener = (*BleveEngine)(nil)
	_ DebugStatser   = (*BleveEngine)(nil)
	_ Searcher       = (*Engine)(nil)
)
