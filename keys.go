package rowcache

import "fmt"

// CacheKey renders cfg.KeyTemplate with (prefix, table, primary key, id).
// Equal inputs always yield equal keys; every reconciliation step relies on it.
func CacheKey(id ID, entity EntityType, cfg CacheConfig) string {
	entity = entity.normalize()
	return fmt.Sprintf(cfg.KeyTemplate, cfg.Prefix, entity.Table, entity.PrimaryKey, id.String())
}

func cacheKeys(ids []ID, entity EntityType, cfg CacheConfig) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = CacheKey(id, entity, cfg)
	}
	return keys
}
