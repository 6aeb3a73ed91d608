package rowcache

import (
	"context"
	"time"
)

// Backend is a fast key/value store holding one Row per cache key.
//
// Three outcomes of a read are distinct and must be preserved:
//   - a non-empty Row is a cached record,
//   - an empty Row is a negative entry (the record does not exist),
//   - ok=false means the key is not in the cache at all.
//
// Implementations must be safe for concurrent use. Keys are produced by
// CacheKey and are owned by rowcache; foreign writes under the same
// template may be read back as rows.
type Backend interface {
	// Get returns (row, true, nil) on hit, including an empty row for a
	// negative entry, and (nil, false, nil) when the key is absent.
	Get(ctx context.Context, key string) (Row, bool, error)

	// GetMultiple returns rows only for keys holding data. Order is not
	// significant; callers identify rows by their primary-key field.
	GetMultiple(ctx context.Context, keys []string) ([]Row, error)

	// Set replaces the entry for key. ttl<=0 means no expiry where supported.
	Set(ctx context.Context, key string, row Row, ttl time.Duration) error

	// DeleteMultiple removes all keys and reports aggregate success.
	DeleteMultiple(ctx context.Context, keys []string) (bool, error)

	// Has reports whether key holds any entry, positive or negative.
	Has(ctx context.Context, key string) (bool, error)

	// IncrementField atomically adds amount to one field of an existing
	// entry. It returns false without writing when the key is absent.
	IncrementField(ctx context.Context, key, field string, amount float64) (bool, error)

	Config() CacheConfig

	Close(ctx context.Context) error
}

// Factory builds the backend for one connection. cfg already has defaults applied.
type Factory func(connection string, cfg CacheConfig) (Backend, error)

// Registry maps a handler type tag (e.g. "redis") to its Factory.
type Registry map[string]Factory
