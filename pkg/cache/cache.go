package cache

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"wikidatago/pkg/db"
)

// Cacher defines the caching interface.
type Cacher interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
}

// SQLiteCache implements Cacher on the cache table of pkg/db.
// Entries older than ttl read as misses; a zero ttl never expires.
type SQLiteCache struct {
	db  *db.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLiteCache creates a new cache.
func NewSQLiteCache(d *db.DB, ttl time.Duration) *SQLiteCache {
	return &SQLiteCache{db: d, ttl: ttl, now: time.Now}
}

func (c *SQLiteCache) GetCache(ctx context.Context, key string) ([]byte, bool) {
	var (
		val     []byte
		created time.Time
	)
	err := c.db.QueryRowContext(ctx, "SELECT value, created_at FROM cache WHERE key = ?", key).Scan(&val, &created)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("Cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(created) > c.ttl {
		return nil, false
	}
	return val, true
}

func (c *SQLiteCache) SetCache(ctx context.Context, key string, val []byte) error {
	_, err := c.db.ExecContext(ctx,
		"INSERT INTO cache (key, value, created_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value, created_at = excluded.created_at",
		key, val, c.now().UTC())
	return err
}

// Noop never stores anything. Used when caching is disabled.
type Noop struct{}

func (Noop) GetCache(context.Context, string) ([]byte, bool)  { return nil, false }
func (Noop) SetCache(context.Context, string, []byte) error { return nil }
