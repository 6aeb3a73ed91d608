// Package rowcache implements a cache-aside layer for records addressed by
// primary key. A Manager sits between application code and a RecordStore and
// serves single and batch lookups from per-connection Backends.
//
// Components:
//   - Backend: Row store with TTL (Redis hashes, Ristretto, BigCache).
//   - RecordStore: the authoritative store (SQL, DynamoDB) read on miss.
//   - Manager: picks a backend per EntityType.Connection and reconciles
//     cache and store.
//
// Keys:
//
//	fmt.Sprintf(KeyTemplate, prefix, table, primaryKey, id)
//	default template: mc:%s:m:%s:%s:%s  ->  mc:app:m:users:id:7
//
// Entries:
//
//	non-empty Row  - cached record
//	empty Row      - negative entry, the id does not exist in the store
//	absent         - unknown, read the store
//
// FetchOne writes negative entries on store misses. FetchMany does not, and
// it re-reads ids whose only cache entry is negative.
//
// Increment only touches cached entries:
//
//	ok, err := m.Increment(ctx, rowcache.IntID(5), "views", 1, posts)
//	// ok == false when id 5 is not cached; the store is never written.
package rowcache
