package sqlitedb

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/trezcool/academia/core/offline"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache (
    path       TEXT PRIMARY KEY,
    resource   TEXT NOT NULL,
    body       BLOB NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS cache_resource_idx ON cache (resource);

CREATE TABLE IF NOT EXISTS changes (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    method      TEXT    NOT NULL,
    path        TEXT    NOT NULL,
    resource    TEXT    NOT NULL,
    resource_id TEXT    NOT NULL DEFAULT '',
    body        BLOB,
    base        BLOB,
    server      BLOB,
    status      TEXT    NOT NULL,
    attempts    INTEGER NOT NULL DEFAULT 0,
    last_error  TEXT    NOT NULL DEFAULT '',
    created_at  TEXT    NOT NULL,
    updated_at  TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS changes_status_idx ON changes (status);

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);`

type (
	cacheRow struct {
		Path      string `db:"path"`
		Resource  string `db:"resource"`
		Body      []byte `db:"body"`
		UpdatedAt string `db:"updated_at"`
	}

	changeRow struct {
		ID         int64  `db:"id"`
		Method     string `db:"method"`
		Path       string `db:"path"`
		Resource   string `db:"resource"`
		ResourceID string `db:"resource_id"`
		Body       []byte `db:"body"`
		Base       []byte `db:"base"`
		Server     []byte `db:"server"`
		Status     string `db:"status"`
		Attempts   int    `db:"attempts"`
		LastError  string `db:"last_error"`
		CreatedAt  string `db:"created_at"`
		UpdatedAt  string `db:"updated_at"`
	}
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

const changeColumns = "id, method, path, resource, resource_id, body, base, server, status, attempts, last_error, created_at, updated_at"

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func (row cacheRow) unboil() offline.CacheEntry {
	return offline.CacheEntry{Path: row.Path, Resource: row.Resource, Body: row.Body, UpdatedAt: parseTime(row.UpdatedAt)}
}

func boilChange(c offline.Change) changeRow {
	return changeRow{
		ID:         c.ID,
		Method:     c.Method,
		Path:       c.Path,
		Resource:   c.Resource,
		ResourceID: c.ResourceID,
		Body:       c.Body,
		Base:       c.Base,
		Server:     c.Server,
		Status:     c.Status,
		Attempts:   c.Attempts,
		LastError:  c.LastError,
		CreatedAt:  formatTime(c.CreatedAt),
		UpdatedAt:  formatTime(c.UpdatedAt),
	}
}

func (row changeRow) unboil() offline.Change {
	return offline.Change{
		ID:         row.ID,
		Method:     row.Method,
		Path:       row.Path,
		Resource:   row.Resource,
		ResourceID: row.ResourceID,
		Body:       row.Body,
		Base:       row.Base,
		Server:     row.Server,
		Status:     row.Status,
		Attempts:   row.Attempts,
		LastError:  row.LastError,
		CreatedAt:  parseTime(row.CreatedAt),
		UpdatedAt:  parseTime(row.UpdatedAt),
	}
}

// Store is the local database of the desktop client.
type Store struct {
	db *sqlx.DB
}

var _ offline.Store = (*Store)(nil) // interface compliance check

// Open opens (and creates) the database at path; ":memory:" gives a throwaway database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening local database")
	}
	// a single connection serializes writers (and keeps :memory: databases alive)
	db.SetMaxOpenConns(1)

	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating local schema")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) PutCache(ctx context.Context, entry offline.CacheEntry) error {
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache (path, resource, body, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET resource = excluded.resource, body = excluded.body, updated_at = excluded.updated_at`,
		entry.Path, entry.Resource, []byte(entry.Body), formatTime(entry.UpdatedAt))
	return errors.Wrap(err, "caching response")
}

func (s *Store) GetCache(ctx context.Context, path string) (offline.CacheEntry, error) {
	var row cacheRow
	err := s.db.GetContext(ctx, &row, "SELECT path, resource, body, updated_at FROM cache WHERE path = ?", path)
	if err == sql.ErrNoRows {
		return offline.CacheEntry{}, offline.ErrNotCached
	}
	if err != nil {
		return offline.CacheEntry{}, errors.Wrap(err, "reading cache")
	}
	return row.unboil(), nil
}

func (s *Store) CacheByResource(ctx context.Context, resource string) ([]offline.CacheEntry, error) {
	var rows []cacheRow
	err := s.db.SelectContext(ctx, &rows, "SELECT path, resource, body, updated_at FROM cache WHERE resource = ? ORDER BY path", resource)
	if err != nil {
		return nil, errors.Wrap(err, "reading cache")
	}
	entries := make([]offline.CacheEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.unboil())
	}
	return entries, nil
}

func (s *Store) DeleteCache(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cache WHERE path = ?", path)
	return errors.Wrap(err, "deleting cache")
}

func (s *Store) Enqueue(ctx context.Context, c offline.Change) (offline.Change, error) {
	now := time.Now().UTC()
	if c.Status == "" {
		c.Status = offline.ChangePending
	}
	c.CreatedAt, c.UpdatedAt = now, now

	row := boilChange(c)
	res, err := sqlx.NamedExecContext(ctx, s.db, `
		INSERT INTO changes (method, path, resource, resource_id, body, base, server, status, attempts, last_error, created_at, updated_at)
		VALUES (:method, :path, :resource, :resource_id, :body, :base, :server, :status, :attempts, :last_error, :created_at, :updated_at)`,
		row)
	if err != nil {
		return offline.Change{}, errors.Wrap(err, "queuing change")
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return offline.Change{}, errors.Wrap(err, "queuing change")
	}
	return c, nil
}

func (s *Store) Changes(ctx context.Context, status string) ([]offline.Change, error) {
	q := "SELECT " + changeColumns + " FROM changes"
	var args []interface{}
	if status != "" {
		q += " WHERE status = ?"
		args = append(args, status)
	}

	var rows []changeRow
	if err := s.db.SelectContext(ctx, &rows, q+" ORDER BY id", args...); err != nil {
		return nil, errors.Wrap(err, "listing changes")
	}
	changes := make([]offline.Change, 0, len(rows))
	for _, row := range rows {
		changes = append(changes, row.unboil())
	}
	return changes, nil
}

func (s *Store) GetChange(ctx context.Context, id int64) (offline.Change, error) {
	var row changeRow
	err := s.db.GetContext(ctx, &row, "SELECT "+changeColumns+" FROM changes WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return offline.Change{}, offline.ErrChangeNotFound
	}
	if err != nil {
		return offline.Change{}, errors.Wrap(err, "reading change")
	}
	return row.unboil(), nil
}

func (s *Store) UpdateChange(ctx context.Context, c offline.Change) error {
	c.UpdatedAt = time.Now()
	row := boilChange(c)
	res, err := sqlx.NamedExecContext(ctx, s.db, `
		UPDATE changes SET body = :body, base = :base, server = :server, status = :status, attempts = :attempts,
		    last_error = :last_error, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return errors.Wrap(err, "updating change")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return offline.ErrChangeNotFound
	}
	return nil
}

func (s *Store) DeleteChange(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM changes WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "deleting change")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return offline.ErrChangeNotFound
	}
	return nil
}

func (s *Store) CountChanges(ctx context.Context) (offline.Counts, error) {
	var rows []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &rows, "SELECT status, COUNT(*) AS n FROM changes GROUP BY status"); err != nil {
		return offline.Counts{}, errors.Wrap(err, "counting changes")
	}
	var counts offline.Counts
	for _, row := range rows {
		switch row.Status {
		case offline.ChangePending:
			counts.Pending = row.N
		case offline.ChangeConflict:
			counts.Conflicts = row.N
		case offline.ChangeFailed:
			counts.Failed = row.N
		}
	}
	return counts, nil
}

func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value", key, value)
	return errors.Wrap(err, "saving meta")
}

func (s *Store) Meta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM meta WHERE key = ?", key)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, errors.Wrap(err, "reading meta")
}
