package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// SQLiteStore keeps feeds and items in a single SQLite file.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

type feedRow struct {
	ID            int64          `db:"id"`
	URL           string         `db:"url"`
	Category      sql.NullString `db:"category"`
	Title         sql.NullString `db:"title"`
	SiteLink      sql.NullString `db:"site_link"`
	Builtin       bool           `db:"is_builtin"`
	Active        bool           `db:"active"`
	ETag          sql.NullString `db:"etag"`
	LastModified  sql.NullString `db:"last_modified"`
	LastCheckedAt sql.NullString `db:"last_checked_at"`
}

func (r feedRow) toFeed() *Feed {
	return &Feed{
		ID:            r.ID,
		URL:           r.URL,
		Category:      r.Category.String,
		Title:         r.Title.String,
		SiteLink:      r.SiteLink.String,
		Builtin:       r.Builtin,
		Active:        r.Active,
		ETag:          r.ETag.String,
		LastModified:  r.LastModified.String,
		LastCheckedAt: parseTime(r.LastCheckedAt.String),
	}
}

type itemRow struct {
	ID        int64          `db:"id"`
	FeedID    int64          `db:"feed_id"`
	GUID      sql.NullString `db:"guid"`
	Title     sql.NullString `db:"title"`
	Link      string         `db:"link"`
	Summary   sql.NullString `db:"summary"`
	Published sql.NullString `db:"published"`
	FetchedAt sql.NullString `db:"fetched_at"`
}

func (r itemRow) toItem() *Item {
	item := &Item{
		ID:        r.ID,
		FeedID:    r.FeedID,
		GUID:      r.GUID.String,
		Title:     r.Title.String,
		Link:      r.Link,
		Summary:   r.Summary.String,
		Published: parseTime(r.Published.String),
	}
	if t := parseTime(r.FetchedAt.String); t != nil {
		item.FetchedAt = *t
	}
	return item
}

const feedColumns = `id, url, category, title, site_link, is_builtin, active, etag, last_modified, last_checked_at`

// connectionPragmas are applied by the driver to every new connection.
var connectionPragmas = []string{"foreign_keys(1)", "journal_mode(WAL)"}

func sqliteDSN(path string) string {
	var b strings.Builder
	b.WriteString(path)
	for i, p := range connectionPragmas {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString("_pragma=" + p)
	}
	return b.String()
}

// OpenSQLite opens (creating if needed) the database at path and applies
// pending schema migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListFeeds(activeOnly bool) ([]*Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY COALESCE(category, '') ASC, url ASC`

	var rows []feedRow
	if err := s.db.Select(&rows, query); err != nil {
		return nil, fmt.Errorf("listing feeds: %w", err)
	}

	feeds := make([]*Feed, 0, len(rows))
	for _, r := range rows {
		feeds = append(feeds, r.toFeed())
	}
	return feeds, nil
}

func (s *SQLiteStore) GetFeed(id int64) (*Feed, error) {
	var row feedRow
	err := s.db.Get(&row, `SELECT `+feedColumns+` FROM feeds WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFeedNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting feed %d: %w", id, err)
	}
	return row.toFeed(), nil
}

func (s *SQLiteStore) AddFeed(url, category string, builtin bool) (int64, error) {
	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO feeds(url, category, is_builtin, active) VALUES (?, ?, ?, 1)`,
		url, nullString(category), builtin,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting feed: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 && category != "" {
		if _, err := s.db.Exec(`UPDATE feeds SET category = ? WHERE url = ?`, category, url); err != nil {
			return 0, fmt.Errorf("updating feed category: %w", err)
		}
	}

	var id int64
	if err := s.db.Get(&id, `SELECT id FROM feeds WHERE url = ?`, url); err != nil {
		return 0, fmt.Errorf("reading feed id: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) UpdateFeedMeta(id int64, meta FeedMeta) error {
	var sets []string
	var args []any

	if meta.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *meta.Title)
	}
	if meta.SiteLink != nil {
		sets = append(sets, "site_link = ?")
		args = append(args, *meta.SiteLink)
	}
	if meta.ETag != nil {
		sets = append(sets, "etag = ?")
		args = append(args, *meta.ETag)
	}
	if meta.LastModified != nil {
		sets = append(sets, "last_modified = ?")
		args = append(args, *meta.LastModified)
	}
	if meta.LastCheckedAt != nil {
		sets = append(sets, "last_checked_at = ?")
		args = append(args, formatTime(*meta.LastCheckedAt))
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	res, err := s.db.Exec(`UPDATE feeds SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("updating feed %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrFeedNotFound
	}
	return nil
}

func (s *SQLiteStore) SetFeedActive(id int64, active bool) error {
	res, err := s.db.Exec(`UPDATE feeds SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("updating feed %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrFeedNotFound
	}
	return nil
}

func (s *SQLiteStore) UpsertItem(feedID int64, item ItemUpsert) error {
	var published any
	if item.Published != nil {
		published = formatTime(*item.Published)
	}

	_, err := s.db.Exec(`
		INSERT INTO items(feed_id, guid, title, link, summary, published, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(feed_id, link) DO UPDATE SET
			title = excluded.title,
			summary = excluded.summary,
			published = excluded.published
	`, feedID, nullString(item.GUID), nullString(item.Title), item.Link,
		nullString(item.Summary), published, formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("upserting item %q: %w", item.Link, err)
	}
	return nil
}

func (s *SQLiteStore) QueryItems(q ItemQuery) ([]*Item, error) {
	if q.FeedIDs != nil && len(q.FeedIDs) == 0 {
		return []*Item{}, nil
	}

	var where []string
	var args []any

	if len(q.FeedIDs) > 0 {
		clause, inArgs, err := sqlx.In(`feed_id IN (?)`, q.FeedIDs)
		if err != nil {
			return nil, fmt.Errorf("building feed filter: %w", err)
		}
		where = append(where, clause)
		args = append(args, inArgs...)
	}
	if q.SinceHours > 0 {
		where = append(where, `(published IS NULL OR published >= ?)`)
		args = append(args, cutoff(s.now(), q.SinceHours))
	}
	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		where = append(where, `(title LIKE ? OR summary LIKE ?)`)
		args = append(args, pattern, pattern)
	}

	query := `SELECT id, feed_id, guid, title, link, summary, published, fetched_at FROM items`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY COALESCE(published, '` + absentPublished + `') DESC, id DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	var rows []itemRow
	if err := s.db.Select(&rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}

	items := make([]*Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.toItem())
	}
	return items, nil
}

// SeedBuiltins inserts the built-in feeds only when the feed table is empty.
func (s *SQLiteStore) SeedBuiltins(sources []Category) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("starting seed: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var count int
	if err := tx.Get(&count, `SELECT COUNT(*) FROM feeds`); err != nil {
		return fmt.Errorf("counting feeds: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, cat := range sources {
		for _, url := range cat.URLs {
			if _, err := tx.Exec(
				`INSERT OR IGNORE INTO feeds(url, category, is_builtin, active) VALUES (?, ?, 1, 1)`,
				url, nullString(cat.Name),
			); err != nil {
				return fmt.Errorf("seeding %s: %w", url, err)
			}
		}
	}
	return tx.Commit()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
