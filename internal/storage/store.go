package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"
)

var (
	feedsBucket    = []byte("feeds")
	feedURLsBucket = []byte("feed_urls")
	itemsBucket    = []byte("items")
)

// BoltStore is the embedded key/value backend. Items are keyed by
// feed id followed by link, which enforces one record per (feed, link).
type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

func OpenBolt(dbPath string, timeout time.Duration) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	if timeout <= 0 {
		timeout = 1 * time.Second
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{feedsBucket, feedURLsBucket, itemsBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func idKey(id int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}

func itemKey(feedID int64, link string) []byte {
	return append(idKey(feedID), link...)
}

func getFeed(tx *bolt.Tx, id int64) (*Feed, error) {
	data := tx.Bucket(feedsBucket).Get(idKey(id))
	if data == nil {
		return nil, ErrFeedNotFound
	}
	var feed Feed
	if err := json.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("decoding feed %d: %w", id, err)
	}
	return &feed, nil
}

func putFeed(tx *bolt.Tx, feed *Feed) error {
	data, err := json.Marshal(feed)
	if err != nil {
		return err
	}
	return tx.Bucket(feedsBucket).Put(idKey(feed.ID), data)
}

func (s *BoltStore) ListFeeds(activeOnly bool) ([]*Feed, error) {
	var feeds []*Feed
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(feedsBucket).ForEach(func(_ []byte, v []byte) error {
			var feed Feed
			if err := json.Unmarshal(v, &feed); err != nil {
				return err
			}
			if activeOnly && !feed.Active {
				return nil
			}
			feeds = append(feeds, &feed)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing feeds: %w", err)
	}

	sort.SliceStable(feeds, func(i, j int) bool {
		if feeds[i].Category != feeds[j].Category {
			return feeds[i].Category < feeds[j].Category
		}
		return feeds[i].URL < feeds[j].URL
	})
	return feeds, nil
}

func (s *BoltStore) GetFeed(id int64) (*Feed, error) {
	var feed *Feed
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		feed, err = getFeed(tx, id)
		return err
	})
	return feed, err
}

func addFeed(tx *bolt.Tx, url, category string, builtin bool) (int64, error) {
	urls := tx.Bucket(feedURLsBucket)
	if existing := urls.Get([]byte(url)); existing != nil {
		id := int64(binary.BigEndian.Uint64(existing))
		if category == "" {
			return id, nil
		}
		feed, err := getFeed(tx, id)
		if err != nil {
			return 0, err
		}
		feed.Category = category
		return id, putFeed(tx, feed)
	}

	seq, err := tx.Bucket(feedsBucket).NextSequence()
	if err != nil {
		return 0, err
	}
	feed := &Feed{
		ID:       int64(seq),
		URL:      url,
		Category: category,
		Builtin:  builtin,
		Active:   true,
	}
	if err := putFeed(tx, feed); err != nil {
		return 0, err
	}
	return feed.ID, urls.Put([]byte(url), idKey(feed.ID))
}

func (s *BoltStore) AddFeed(url, category string, builtin bool) (int64, error) {
	var id int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		var err error
		id, err = addFeed(tx, url, category, builtin)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("adding feed: %w", err)
	}
	return id, nil
}

func (s *BoltStore) UpdateFeedMeta(id int64, meta FeedMeta) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		feed, err := getFeed(tx, id)
		if err != nil {
			return err
		}
		if meta.Title != nil {
			feed.Title = *meta.Title
		}
		if meta.SiteLink != nil {
			feed.SiteLink = *meta.SiteLink
		}
		if meta.ETag != nil {
			feed.ETag = *meta.ETag
		}
		if meta.LastModified != nil {
			feed.LastModified = *meta.LastModified
		}
		if meta.LastCheckedAt != nil {
			checked := meta.LastCheckedAt.UTC().Truncate(time.Second)
			feed.LastCheckedAt = &checked
		}
		return putFeed(tx, feed)
	})
}

func (s *BoltStore) SetFeedActive(id int64, active bool) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		feed, err := getFeed(tx, id)
		if err != nil {
			return err
		}
		feed.Active = active
		return putFeed(tx, feed)
	})
}

func (s *BoltStore) UpsertItem(feedID int64, item ItemUpsert) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(feedsBucket).Get(idKey(feedID)) == nil {
			return ErrFeedNotFound
		}

		b := tx.Bucket(itemsBucket)
		key := itemKey(feedID, item.Link)

		var stored Item
		if data := b.Get(key); data != nil {
			if err := json.Unmarshal(data, &stored); err != nil {
				return fmt.Errorf("decoding item %q: %w", item.Link, err)
			}
		} else {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			stored = Item{
				ID:        int64(seq),
				FeedID:    feedID,
				GUID:      item.GUID,
				Link:      item.Link,
				FetchedAt: s.now().UTC().Truncate(time.Second),
			}
		}

		stored.Title = item.Title
		stored.Summary = item.Summary
		stored.Published = nil
		if item.Published != nil {
			p := item.Published.UTC().Truncate(time.Second)
			stored.Published = &p
		}

		data, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

func (s *BoltStore) QueryItems(q ItemQuery) ([]*Item, error) {
	if q.FeedIDs != nil && len(q.FeedIDs) == 0 {
		return []*Item{}, nil
	}

	feedFilter := make(map[int64]bool, len(q.FeedIDs))
	for _, id := range q.FeedIDs {
		feedFilter[id] = true
	}

	var since *time.Time
	if q.SinceHours > 0 {
		since = parseTime(cutoff(s.now(), q.SinceHours))
	}
	search := strings.ToLower(q.Search)

	var items []*Item
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(itemsBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if len(feedFilter) > 0 && !feedFilter[int64(binary.BigEndian.Uint64(k[:8]))] {
				continue
			}
			var item Item
			if err := json.Unmarshal(v, &item); err != nil {
				continue
			}
			if since != nil && item.Published != nil && item.Published.Before(*since) {
				continue
			}
			if search != "" &&
				!strings.Contains(strings.ToLower(item.Title), search) &&
				!strings.Contains(strings.ToLower(item.Summary), search) {
				continue
			}
			items = append(items, &item)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}

	sort.Slice(items, func(i, j int) bool {
		pi, pj := publishedKey(items[i]), publishedKey(items[j])
		if pi != pj {
			return pi > pj
		}
		return items[i].ID > items[j].ID
	})

	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	if items == nil {
		items = []*Item{}
	}
	return items, nil
}

func publishedKey(item *Item) string {
	if item.Published == nil {
		return absentPublished
	}
	return formatTime(*item.Published)
}

// SeedBuiltins inserts the built-in feeds only when no feed exists yet.
func (s *BoltStore) SeedBuiltins(sources []Category) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if k, _ := tx.Bucket(feedsBucket).Cursor().First(); k != nil {
			return nil
		}
		for _, cat := range sources {
			for _, url := range cat.URLs {
				if _, err := addFeed(tx, url, cat.Name, true); err != nil {
					return fmt.Errorf("seeding %s: %w", url, err)
				}
			}
		}
		return nil
	})
}
