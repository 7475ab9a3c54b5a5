package storage

import (
	"errors"
	"time"
)

// ErrFeedNotFound is returned when an operation names a feed id the store
// does not know.
var ErrFeedNotFound = errors.New("feed not found")

// TimeLayout is the on-disk representation of every timestamp. Values are
// always UTC so lexical order equals chronological order.
const TimeLayout = "2006-01-02T15:04:05Z"

// absentPublished orders items without a publish time after all others.
const absentPublished = "0000-01-01T00:00:00Z"

type Feed struct {
	ID            int64      `json:"id"`
	URL           string     `json:"url"`
	Category      string     `json:"category"`
	Title         string     `json:"title"`
	SiteLink      string     `json:"site_link"`
	Builtin       bool       `json:"builtin"`
	Active        bool       `json:"active"`
	ETag          string     `json:"etag"`
	LastModified  string     `json:"last_modified"`
	LastCheckedAt *time.Time `json:"last_checked_at"`
}

// FeedMeta carries a partial feed update. Nil fields are left unchanged.
type FeedMeta struct {
	Title         *string
	SiteLink      *string
	ETag          *string
	LastModified  *string
	LastCheckedAt *time.Time
}

type Item struct {
	ID        int64      `json:"id"`
	FeedID    int64      `json:"feed_id"`
	GUID      string     `json:"guid,omitempty"`
	Title     string     `json:"title"`
	Link      string     `json:"link"`
	Summary   string     `json:"summary,omitempty"`
	Published *time.Time `json:"published,omitempty"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// ItemUpsert is the write shape of an item. Link is the key within a feed;
// GUID is only recorded on first insert.
type ItemUpsert struct {
	Link      string
	Title     string
	Summary   string
	Published *time.Time
	GUID      string
}

// ItemQuery filters QueryItems. Zero values disable the corresponding filter.
// A non-nil but empty FeedIDs slice matches nothing.
type ItemQuery struct {
	FeedIDs    []int64
	SinceHours int
	Limit      int
	Search     string
}

// Category is one named group of feed URLs, kept in declaration order.
type Category struct {
	Name string
	URLs []string
}

// Store is the persistence contract the crawler and exporter rely on.
// Every call is its own transaction.
type Store interface {
	ListFeeds(activeOnly bool) ([]*Feed, error)
	GetFeed(id int64) (*Feed, error)
	AddFeed(url, category string, builtin bool) (int64, error)
	UpdateFeedMeta(id int64, meta FeedMeta) error
	SetFeedActive(id int64, active bool) error
	UpsertItem(feedID int64, item ItemUpsert) error
	QueryItems(q ItemQuery) ([]*Item, error)
	SeedBuiltins(sources []Category) error
	Close() error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// cutoff returns the lower publish bound for a since-hours filter.
func cutoff(now time.Time, sinceHours int) string {
	return formatTime(now.Add(-time.Duration(sinceHours) * time.Hour))
}
