// Package bigcache keeps cached rows off-heap in allegro/bigcache.
//
// Rows are encoded with a codec and framed with a small header that
// separates rows from negative entries. Entries that fail to unframe or
// decode are deleted on read and reported through Hooks.SelfHeal.
//
// BigCache has no per-entry TTL: every entry lives for LifeWindow after its
// last write, and LifeWindow defaults to the connection TTL. Negative
// entries therefore ignore NegativeTTL.
package bigcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/rowcache"
	"github.com/unkn0wn-root/rowcache/codec"
	"github.com/unkn0wn-root/rowcache/internal/numeric"
	"github.com/unkn0wn-root/rowcache/internal/wire"
)

type BigCache struct {
	c     *bc.BigCache
	cfg   rowcache.CacheConfig
	codec codec.Row
	hooks rowcache.Hooks
	mu    sync.Mutex // serializes writes against IncrementField
}

var _ rowcache.Backend = (*BigCache)(nil)

type Config struct {
	LifeWindow         time.Duration // 0 => Cache.TTL
	CleanWindow        time.Duration
	Shards             int
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited

	Codec codec.Row      // default: codec.Msgpack
	Hooks rowcache.Hooks // receives SelfHeal; default: NopHooks
	Cache rowcache.CacheConfig
}

func New(cfg Config) (*BigCache, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = cfg.Cache.TTL
	}
	if life <= 0 {
		return nil, errors.New("bigcache: life window must be positive")
	}
	conf := bc.DefaultConfig(life)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.Shards > 0 {
		conf.Shards = cfg.Shards
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}

	b := &BigCache{c: c, cfg: cfg.Cache, codec: cfg.Codec, hooks: cfg.Hooks}
	if b.codec == nil {
		b.codec = codec.Msgpack[rowcache.Row]{}
	}
	if b.hooks == nil {
		b.hooks = rowcache.NopHooks{}
	}
	return b, nil
}

// Factory gives every connection its own BigCache built from base.
func Factory(base Config) rowcache.Factory {
	return func(_ string, cfg rowcache.CacheConfig) (rowcache.Backend, error) {
		base.Cache = cfg
		return New(base)
	}
}

func (b *BigCache) Get(_ context.Context, key string) (rowcache.Row, bool, error) {
	return b.load(key)
}

func (b *BigCache) load(key string) (rowcache.Row, bool, error) {
	raw, err := b.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	payload, negative, err := wire.Decode(raw)
	if err != nil {
		b.heal(key, "corrupt")
		return nil, false, nil
	}
	if negative {
		return rowcache.Row{}, true, nil
	}
	row, err := b.codec.Decode(payload)
	if err != nil || len(row) == 0 {
		b.heal(key, "decode")
		return nil, false, nil
	}
	return row, true, nil
}

func (b *BigCache) heal(key, reason string) {
	_ = b.c.Delete(key)
	b.hooks.SelfHeal(key, reason)
}

func (b *BigCache) GetMultiple(_ context.Context, keys []string) ([]rowcache.Row, error) {
	out := make([]rowcache.Row, 0, len(keys))
	for _, k := range keys {
		row, ok, err := b.load(k)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// Set ignores ttl; see the package doc.
func (b *BigCache) Set(_ context.Context, key string, row rowcache.Row, _ time.Duration) error {
	frame, err := b.encode(row)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.c.Set(key, frame)
}

func (b *BigCache) encode(row rowcache.Row) ([]byte, error) {
	if row.Negative() {
		return wire.EncodeNegative(), nil
	}
	payload, err := b.codec.Encode(row)
	if err != nil {
		return nil, fmt.Errorf("bigcache: encode row: %w", err)
	}
	return wire.EncodeRow(payload), nil
}

func (b *BigCache) DeleteMultiple(_ context.Context, keys []string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range keys {
		if err := b.c.Delete(k); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
			return false, err
		}
	}
	return true, nil
}

func (b *BigCache) Has(_ context.Context, key string) (bool, error) {
	_, ok, err := b.load(key)
	return ok, err
}

// IncrementField rewrites the entry, which restarts its life window.
// On a negative entry it creates a one-field row.
func (b *BigCache) IncrementField(_ context.Context, key, field string, amount float64) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	row, ok, err := b.load(key)
	if err != nil || !ok {
		return false, err
	}
	v, err := numeric.Add(row[field], amount)
	if err != nil {
		return false, err
	}
	row[field] = v
	frame, err := b.encode(row)
	if err != nil {
		return false, err
	}
	if err := b.c.Set(key, frame); err != nil {
		return false, err
	}
	return true, nil
}

func (b *BigCache) Config() rowcache.CacheConfig { return b.cfg }

func (b *BigCache) Close(_ context.Context) error {
	return b.c.Close()
}

// Len reports the number of stored entries.
func (b *BigCache) Len() int { return b.c.Len() }
