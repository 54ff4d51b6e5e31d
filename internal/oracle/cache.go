// SPDX-License-Identifier: Apache-2.0

package oracle

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite" // pure Go driver, registered as "sqlite"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS scores (
	key        TEXT PRIMARY KEY,
	model_id   TEXT NOT NULL,
	similarity REAL NOT NULL,
	entities   TEXT NOT NULL
)`

// Cached remembers successful answers of another oracle in a SQLite
// database, keyed by model id and text pair. Failures are never stored.
type Cached struct {
	next    Oracle
	db      *sql.DB
	modelID string
	logger  *slog.Logger
}

// OpenCached opens (or creates) the cache at path in front of next. Use
// ":memory:" for a throwaway cache.
func OpenCached(path, modelID string, next Oracle, logger *slog.Logger) (*Cached, error) {
	if next == nil {
		return nil, errors.New("cached oracle requires a backing oracle")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open oracle cache %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(cacheSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init oracle cache %s: %w", path, err)
	}
	return &Cached{next: next, db: db, modelID: modelID, logger: logger}, nil
}

// CacheKey is the hex blake3 digest of the model id and both texts.
func CacheKey(modelID, a, b string) string {
	h := blake3.New()
	for _, part := range []string{modelID, a, b} {
		_, _ = h.Write([]byte(part))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cached) Score(ctx context.Context, a, b string) (Result, error) {
	key := CacheKey(c.modelID, a, b)
	if res, ok := c.lookup(ctx, key); ok {
		return res, nil
	}
	res, err := c.next.Score(ctx, a, b)
	if err != nil {
		return Result{}, err
	}
	c.store(ctx, key, res)
	return res, nil
}

func (c *Cached) lookup(ctx context.Context, key string) (Result, bool) {
	var (
		res      Result
		entities string
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT similarity, entities FROM scores WHERE key = ?`, key,
	).Scan(&res.Similarity, &entities)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.logger.Debug("oracle cache lookup failed", "error", err)
		}
		return Result{}, false
	}
	if err := json.Unmarshal([]byte(entities), &res.Entities); err != nil {
		c.logger.Debug("oracle cache entry unreadable", "error", err)
		return Result{}, false
	}
	return res, true
}

func (c *Cached) store(ctx context.Context, key string, res Result) {
	entities, err := json.Marshal(res.Entities)
	if err != nil {
		return
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO scores (key, model_id, similarity, entities) VALUES (?, ?, ?, ?)`,
		key, c.modelID, res.Similarity, string(entities))
	if err != nil {
		c.logger.Debug("oracle cache store failed", "error", err)
	}
}

// Len returns the number of cached answers.
func (c *Cached) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scores`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count oracle cache: %w", err)
	}
	return n, nil
}

func (c *Cached) Close() error {
	return c.db.Close()
}

var _ Oracle = (*Cached)(nil)
