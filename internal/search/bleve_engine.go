package search

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/feedagg/internal/storage"
)

// BleveEngine keeps a full-text index of stored items next to the database.
type BleveEngine struct {
	store storage.Store
	idx   bleve.Index
}

// NewBleveEngine creates or opens a Bleve index at indexPath and indexes current data.
func NewBleveEngine(store storage.Store, indexPath string) (*BleveEngine, error) {
	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	idx, err := bleve.Open(indexPath)
	if err != nil {
		idx, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("creating index: %w", err)
		}
	}

	be := &BleveEngine{store: store, idx: idx}
	if err := be.reindexAll(); err != nil {
		idx.Close()
		return nil, err
	}
	return be, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true
	title.IncludeTermVectors = true

	summary := bleve.NewTextFieldMapping()
	summary.Analyzer = standard.Name
	summary.Store = true

	link := bleve.NewTextFieldMapping()
	link.Analyzer = standard.Name
	link.Store = true

	feedID := bleve.NewTextFieldMapping()
	feedID.Analyzer = keyword.Name
	feedID.Store = true

	published := bleve.NewTextFieldMapping()
	published.Index = false
	published.Store = true

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("summary", summary)
	dm.AddFieldMappingsAt("link", link)
	dm.AddFieldMappingsAt("feed_id", feedID)
	dm.AddFieldMappingsAt("published", published)

	im.DefaultMapping = dm
	return im
}

func (b *BleveEngine) Close() error {
	return b.idx.Close()
}

func (b *BleveEngine) reindexAll() error {
	items, err := b.store.QueryItems(storage.ItemQuery{})
	if err != nil {
		return fmt.Errorf("loading items for index: %w", err)
	}

	batch := b.idx.NewBatch()
	for _, it := range items {
		if err := batch.Index(docID(it.FeedID, it.Link), itemDoc(it)); err != nil {
			return fmt.Errorf("indexing %q: %w", it.Link, err)
		}
	}
	return b.idx.Batch(batch)
}

func itemDoc(it *storage.Item) map[string]any {
	doc := map[string]any{
		"type":    "item",
		"feed_id": strconv.FormatInt(it.FeedID, 10),
		"title":   it.Title,
		"summary": it.Summary,
		"link":    it.Link,
	}
	if it.Published != nil {
		doc["published"] = it.Published.UTC().Format(time.RFC3339)
	}
	return doc
}

func (b *BleveEngine) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []*Result{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	var qs []bleveQuery.Query
	for _, tok := range tokenize(query) {
		qt := bleve.NewMatchQuery(tok)
		qt.SetField("title")
		qt.SetBoost(4.0)
		qtp := bleve.NewPrefixQuery(tok)
		qtp.SetField("title")
		qtp.SetBoost(3.5)
		qs2 := bleve.NewMatchQuery(tok)
		qs2.SetField("summary")
		qs2.SetBoost(2.0)
		qsp := bleve.NewPrefixQuery(tok)
		qsp.SetField("summary")
		qsp.SetBoost(1.8)
		ql := bleve.NewMatchQuery(tok)
		ql.SetField("link")
		ql.SetBoost(0.5)
		qs = append(qs, qt, qtp, qs2, qsp, ql)
	}
	if len(qs) == 0 {
		return []*Result{}, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	req.Fields = []string{"title", "summary", "link", "feed_id", "published"}
	res, err := b.idx.Search(req)
	if err != nil {
		return nil, err
	}

	feeds := make(map[int64]*storage.Feed)
	out := make([]*Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		item := &storage.Item{}
		if t, ok := h.Fields["title"].(string); ok {
			item.Title = t
		}
		if s, ok := h.Fields["summary"].(string); ok {
			item.Summary = s
		}
		if l, ok := h.Fields["link"].(string); ok {
			item.Link = l
		}
		if p, ok := h.Fields["published"].(string); ok {
			if ts, err := time.Parse(time.RFC3339, p); err == nil {
				item.Published = &ts
			}
		}

		r := &Result{Item: item, Score: h.Score}
		if fid, ok := h.Fields["feed_id"].(string); ok {
			if id, err := strconv.ParseInt(fid, 10, 64); err == nil {
				item.FeedID = id
				if _, cached := feeds[id]; !cached {
					f, _ := b.store.GetFeed(id)
					feeds[id] = f
				}
				r.Feed = feeds[id]
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// OnItemsUpdated indexes the items of a freshly crawled feed.
func (b *BleveEngine) OnItemsUpdated(feed *storage.Feed, items []*storage.Item) {
	batch := b.idx.NewBatch()
	for _, it := range items {
		_ = batch.Index(docID(it.FeedID, it.Link), itemDoc(it))
	}
	_ = b.idx.Batch(batch)
}

// DocCount reports total documents in the index.
func (b *BleveEngine) DocCount() (int, error) {
	n, err := b.idx.DocCount()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func docID(feedID int64, link string) string {
	return "item:" + strconv.FormatInt(feedID, 10) + ":" + link
}
