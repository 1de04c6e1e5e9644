package store

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/mirkola/moriarty/internal/errors"
	"github.com/mirkola/moriarty/internal/sqlite"
)

// ErrNotFound is returned when a key is absent or has expired.
var ErrNotFound = errors.NewSentinel("key not found")

// KV is a key-value view over the sqlite database with TTL semantics.
//
// Semantics are last-write-wins with no transactional guarantees beyond a
// single statement. Expired entries are treated as absent on read and swept
// opportunistically on write.
type KV struct {
	db     *sqlite.Database
	logger *slog.Logger
	now    func() time.Time
}

func NewKV(db *sqlite.Database, logger *slog.Logger) *KV {
	return &KV{
		db:     db,
		logger: logger.With("source", "KV"),
		now:    time.Now,
	}
}

// SetNowFunc overrides the clock used for TTL checks. Tests use it to
// simulate expiry without sleeping.
func (kv *KV) SetNowFunc(now func() time.Time) {
	kv.now = now
}

type kvRow struct {
	Value     []byte        `db:"value"`
	ExpiresAt sql.NullInt64 `db:"expires_at"`
}

// Get returns the value for key, or ErrNotFound if absent or expired.
func (kv *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var row kvRow
	stmt := `SELECT value, expires_at FROM kv WHERE key = ?`
	if err := kv.db.ReadOnly.GetContext(ctx, &row, stmt, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrNotFound, "get", slog.String("key", key))
		}
		return nil, errors.Wrap(err, "query kv", slog.String("key", key))
	}
	if row.ExpiresAt.Valid && row.ExpiresAt.Int64 <= kv.now().Unix() {
		return nil, errors.Wrap(ErrNotFound, "get expired", slog.String("key", key))
	}
	return row.Value, nil
}

// Set stores value under key. A zero ttl means the entry never expires.
func (kv *KV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt any
	if ttl > 0 {
		expiresAt = kv.now().Add(ttl).Unix()
	}
	stmt := `INSERT INTO kv (key, value, expires_at, updated_at)
VALUES (?, ?, ?, unixepoch())
ON CONFLICT (key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at, updated_at = excluded.updated_at`
	if _, err := kv.db.ReadWrite.ExecContext(ctx, stmt, key, value, expiresAt); err != nil {
		return errors.Wrap(err, "set kv", slog.String("key", key))
	}
	kv.sweepExpired(ctx)
	return nil
}

// Delete removes the key. Deleting an absent key is not an error.
func (kv *KV) Delete(ctx context.Context, key string) error {
	if _, err := kv.db.ReadWrite.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return errors.Wrap(err, "delete kv", slog.String("key", key))
	}
	return nil
}

// sweepExpired drops expired entries. Failures are logged, never surfaced;
// expired rows are already invisible to readers.
func (kv *KV) sweepExpired(ctx context.Context) {
	stmt := `DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at <= ?`
	if _, err := kv.db.ReadWrite.ExecContext(ctx, stmt, kv.now().Unix()); err != nil {
		kv.logger.LogAttrs(ctx, slog.LevelWarn, "failed to sweep expired keys",
			errors.SlogError(errors.Wrap(err, "sweep expired")))
	}
}
