package search

import "github.com/pders01/feedagg/internal/storage"

// Result is one ranked hit. Feed may be nil if the item's feed could not be
// loaded.
type Result struct {
	Feed  *storage.Feed `json:"feed,omitempty"`
	Item  *storage.Item `json:"item"`
	Score float64       `json:"score"`
}

// Searcher defines the minimal search API used by the CLI and HTTP views.
type Searcher interface {
	Search(query string, limit int) ([]*Result, error)
}

// UpdateListener can be implemented by search engines that maintain
// an external index and want to be notified about data changes.
type UpdateListener interface {
	OnItemsUpdated(feed *storage.Feed, items []*storage.Item)
}

// DebugStatser provides lightweight stats for visibility/debugging.
type DebugStatser interface {
	DocCount() (int, error)
}
