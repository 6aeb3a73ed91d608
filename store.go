package rowcache

import "context"

// RecordStore is the authoritative store, queried on cache miss.
type RecordStore interface {
	// FindByPrimaryKey returns (nil, false, nil) when no row matches.
	FindByPrimaryKey(ctx context.Context, table, primaryKey string, id ID) (Row, bool, error)
	// FindManyByPrimaryKey runs one batched lookup. Missing ids are skipped;
	// result order is up to the store.
	FindManyByPrimaryKey(ctx context.Context, table, primaryKey string, ids []ID) ([]Row, error)
}
