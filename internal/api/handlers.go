package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pders01/feedagg/internal/debuglog"
	"github.com/pders01/feedagg/internal/feed"
	"github.com/pders01/feedagg/internal/search"
	"github.com/pders01/feedagg/internal/storage"
)

const (
	defaultItemLimit   = 50
	defaultSearchLimit = 20
	maxLimit           = 500
)

// Handler serves read-only views over the persisted feeds. It never
// triggers a crawl.
type Handler struct {
	store    storage.Store
	manager  *feed.Manager
	searcher search.Searcher
}

func NewHandler(store storage.Store, manager *feed.Manager, searcher search.Searcher) *Handler {
	return &Handler{
		store:    store,
		manager:  manager,
		searcher: searcher,
	}
}

// GetHealth reports liveness plus a few counters.
func (h *Handler) GetHealth(c *gin.Context) {
	feeds, err := h.store.ListFeeds(false)
	if err != nil {
		debuglog.Errorf("health: listing feeds: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "storage unavailable",
		})
		return
	}

	resp := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"feeds":     len(feeds),
	}
	if ds, ok := h.searcher.(search.DebugStatser); ok {
		if n, err := ds.DocCount(); err == nil {
			resp["indexed_items"] = n
		}
	}
	c.JSON(http.StatusOK, resp)
}

// ListFeeds returns every registered feed, or only active ones with
// ?active=true.
func (h *Handler) ListFeeds(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	feeds, err := h.store.ListFeeds(activeOnly)
	if err != nil {
		debuglog.Errorf("listing feeds: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list feeds"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"feeds": feeds,
		"count": len(feeds),
	})
}

// ListItems exports stored items with the same filters as the fetch
// command: category, since (hours), limit and q.
func (h *Handler) ListItems(c *gin.Context) {
	since, ok := intParam(c, "since", 0, 0)
	if !ok {
		return
	}
	limit, ok := intParam(c, "limit", defaultItemLimit, maxLimit)
	if !ok {
		return
	}

	opts := feed.ExportOptions{
		SinceHours: since,
		Limit:      limit,
		Search:     c.Query("q"),
	}
	if category := c.Query("category"); category != "" {
		ids, err := h.manager.FeedIDsForCategory(category)
		if err != nil {
			debuglog.Errorf("resolving category %q: %v", category, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve category"})
			return
		}
		opts.FeedIDs = ids
	}

	items, err := h.manager.Export(opts)
	if err != nil {
		debuglog.Errorf("exporting items: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load items"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

// Search runs a ranked full-text query over stored items.
func (h *Handler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}
	limit, ok := intParam(c, "limit", defaultSearchLimit, maxLimit)
	if !ok {
		return
	}

	results, err := h.searcher.Search(query, limit)
	if err != nil {
		debuglog.Errorf("search %q: %v", query, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	if results == nil {
		results = []*search.Result{}
	}
	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"results": results,
		"count":   len(results),
	})
}

// intParam reads a non-negative integer query parameter, writing a 400 and
// returning false when it is malformed. With a positive upper the value is
// clamped to it and 0 means def.
func intParam(c *gin.Context, name string, def, upper int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + " parameter"})
		return 0, false
	}
	if upper > 0 {
		switch {
		case n == 0:
			n = def
		case n > upper:
			n = upper
		}
	}
	return n, true
}
