package storage

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

// neverExpires is stored when the cache has no TTL. RFC 3339 UTC strings
// order lexicographically, so it sorts after every real expiry.
const neverExpires = "9999-12-31T23:59:59Z"

// CachedResult is a stored classification. Candidates are language names in
// declared order.
type CachedResult struct {
	Candidates []string `json:"candidates"`
	Decided    bool     `json:"decided"`
	Clause     int      `json:"clause"`
}

// Cache stores classification results keyed by extension and content. Entries
// written under one rule-set fingerprint are invisible under any other.
type Cache struct {
	db          *DB
	fingerprint string
	ttl         time.Duration
	now         func() time.Time
}

// NewCache creates a cache scoped to fingerprint. A zero ttl keeps entries
// until they are purged.
func NewCache(db *DB, fingerprint string, ttl time.Duration) *Cache {
	return &Cache{db: db, fingerprint: fingerprint, ttl: ttl, now: time.Now}
}

// Key derives the cache key for a classification input.
func Key(ext string, content []byte) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(ext))
	h.Write([]byte{0})
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the stored result for ext and content. Expired entries are
// deleted and reported as misses.
func (c *Cache) Get(ctx context.Context, ext string, content []byte) (CachedResult, bool, error) {
	key := Key(ext, content)

	var valueJSON, expiresAt string
	err := c.db.QueryRowContext(ctx, `
		SELECT value_json, expires_at
		FROM classification_cache
		WHERE key = ? AND fingerprint = ?
	`, key, c.fingerprint).Scan(&valueJSON, &expiresAt)
	if err == sql.ErrNoRows {
		return CachedResult{}, false, nil
	}
	if err != nil {
		return CachedResult{}, false, fmt.Errorf("classification cache lookup failed: %w", err)
	}

	if expiresAt != neverExpires {
		expiresAtTime, err := time.Parse(time.RFC3339, expiresAt)
		if err != nil {
			return CachedResult{}, false, fmt.Errorf("invalid expires_at format: %w", err)
		}
		if !c.now().Before(expiresAtTime) {
			if _, err := c.db.ExecContext(ctx,
				"DELETE FROM classification_cache WHERE key = ? AND fingerprint = ?",
				key, c.fingerprint); err != nil {
				return CachedResult{}, false, fmt.Errorf("failed to delete expired entry: %w", err)
			}
			return CachedResult{}, false, nil
		}
	}

	var result CachedResult
	if err := json.Unmarshal([]byte(valueJSON), &result); err != nil {
		return CachedResult{}, false, fmt.Errorf("corrupt cache entry: %w", err)
	}
	return result, true, nil
}

// Put stores result for ext and content, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, ext string, content []byte, result CachedResult) error {
	valueJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	now := c.now().UTC()
	expiresAt := neverExpires
	if c.ttl > 0 {
		expiresAt = now.Add(c.ttl).Format(time.RFC3339)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO classification_cache (key, fingerprint, extension, value_json, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, Key(ext, content), c.fingerprint, ext, string(valueJSON), expiresAt, now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to set classification cache: %w", err)
	}
	return nil
}

// Purge deletes expired entries and entries written under other
// fingerprints. It returns the number of rows removed.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `
		DELETE FROM classification_cache
		WHERE expires_at <= ? OR fingerprint != ?
	`, c.now().UTC().Format(time.RFC3339), c.fingerprint)
	if err != nil {
		return 0, fmt.Errorf("failed to purge classification cache: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of entries visible under this fingerprint,
// expired or not.
func (c *Cache) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM classification_cache WHERE fingerprint = ?",
		c.fingerprint).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}

// Clear deletes every entry regardless of fingerprint.
func (c *Cache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM classification_cache"); err != nil {
		return fmt.Errorf("failed to clear classification cache: %w", err)
	}
	return nil
}
