package offline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/trezcool/academia/core"
)

// Change statuses
const (
	ChangePending  = "pending"
	ChangeConflict = "conflict" // waiting for a manual resolution
	ChangeFailed   = "failed"   // rejected by the server
)

var (
	ErrNotCached      = core.NewNotFoundError("resource not cached")
	ErrChangeNotFound = core.NewNotFoundError("change not found")
)

// Change is a mutation made while offline, replayed in order on sync.
type Change struct {
	ID         int64           `json:"id"`
	Method     string          `json:"method"`
	Path       string          `json:"path"`
	Resource   string          `json:"resource"`
	ResourceID string          `json:"resource_id"`
	Body       json.RawMessage `json:"body,omitempty"`
	Base       json.RawMessage `json:"base,omitempty"`   // cached copy when the change was made
	Server     json.RawMessage `json:"server,omitempty"` // server copy of a conflict
	Status     string          `json:"status"`
	Attempts   int             `json:"attempts"`
	LastError  string          `json:"last_error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// CacheEntry is the last known server response for a GET path.
type CacheEntry struct {
	Path      string          `json:"path"`
	Resource  string          `json:"resource"`
	Body      json.RawMessage `json:"body"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Counts struct {
	Pending   int `json:"pending"`
	Conflicts int `json:"conflicts"`
	Failed    int `json:"failed"`
}

// Store is the local database of the desktop client.
type Store interface {
	PutCache(ctx context.Context, entry CacheEntry) error
	// GetCache fails with ErrNotCached.
	GetCache(ctx context.Context, path string) (CacheEntry, error)
	CacheByResource(ctx context.Context, resource string) ([]CacheEntry, error)
	DeleteCache(ctx context.Context, path string) error

	Enqueue(ctx context.Context, c Change) (Change, error)
	// Changes lists changes in queue order; all of them when status is empty.
	Changes(ctx context.Context, status string) ([]Change, error)
	// GetChange fails with ErrChangeNotFound.
	GetChange(ctx context.Context, id int64) (Change, error)
	UpdateChange(ctx context.Context, c Change) error
	DeleteChange(ctx context.Context, id int64) error
	CountChanges(ctx context.Context) (Counts, error)

	SetMeta(ctx context.Context, key, value string) error
	// Meta returns "" for unknown keys.
	Meta(ctx context.Context, key string) (string, error)

	Close() error
}
