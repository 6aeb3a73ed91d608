// Package ristretto keeps cached rows in process memory with dgraph-io/ristretto.
//
// Rows are stored as cloned maps, so callers never share a map with the
// cache. Writes are followed by Wait, making them visible to the next Get.
package ristretto

import (
	"context"
	"errors"
	"sync"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/rowcache"
	"github.com/unkn0wn-root/rowcache/internal/numeric"
)

type Ristretto struct {
	c   *rc.Cache
	cfg rowcache.CacheConfig
	mu  sync.Mutex // serializes writes against IncrementField
}

var _ rowcache.Backend = (*Ristretto)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64 // every row costs 1, so this is the entry limit
	BufferItems int64
	Metrics     bool
	Cache       rowcache.CacheConfig
}

func New(cfg Config) (*Ristretto, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,

		IgnoreInternalCost: true, // rows are costed by count
	})
	if err != nil {
		return nil, err
	}
	return &Ristretto{c: c, cfg: cfg.Cache}, nil
}

// Factory gives every connection its own cache sized by base.
func Factory(base Config) rowcache.Factory {
	return func(_ string, cfg rowcache.CacheConfig) (rowcache.Backend, error) {
		base.Cache = cfg
		return New(base)
	}
}

func (b *Ristretto) Get(_ context.Context, key string) (rowcache.Row, bool, error) {
	row, ok := b.load(key)
	if !ok {
		return nil, false, nil
	}
	return row.Clone(), true, nil
}

func (b *Ristretto) load(key string) (rowcache.Row, bool) {
	v, ok := b.c.Get(key)
	if !ok {
		return nil, false
	}
	row, _ := v.(rowcache.Row)
	if row == nil {
		// self-heal: drop unexpected entry shape
		b.c.Del(key)
		return nil, false
	}
	return row, true
}

func (b *Ristretto) GetMultiple(ctx context.Context, keys []string) ([]rowcache.Row, error) {
	out := make([]rowcache.Row, 0, len(keys))
	for _, k := range keys {
		if row, ok, _ := b.Get(ctx, k); ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// Set stores row. A write dropped by ristretto's admission policy is not an
// error; the next read simply misses.
func (b *Ristretto) Set(_ context.Context, key string, row rowcache.Row, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.c.SetWithTTL(key, row.Clone(), 1, ttl)
	b.c.Wait()
	return nil
}

func (b *Ristretto) DeleteMultiple(_ context.Context, keys []string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range keys {
		b.c.Del(k)
	}
	b.c.Wait()
	return true, nil
}

func (b *Ristretto) Has(_ context.Context, key string) (bool, error) {
	_, ok := b.load(key)
	return ok, nil
}

// IncrementField rewrites the entry with field+amount and keeps the
// remaining TTL.
func (b *Ristretto) IncrementField(_ context.Context, key, field string, amount float64) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	row, ok := b.load(key)
	if !ok {
		return false, nil
	}
	ttl, ok := b.c.GetTTL(key)
	if !ok {
		return false, nil
	}
	v, err := numeric.Add(row[field], amount)
	if err != nil {
		return false, err
	}
	next := row.Clone()
	next[field] = v
	b.c.SetWithTTL(key, next, 1, ttl)
	b.c.Wait()
	return true, nil
}

func (b *Ristretto) Config() rowcache.CacheConfig { return b.cfg }

func (b *Ristretto) Close(_ context.Context) error {
	b.c.Wait()
	b.c.Close()
	return nil
}

// Metrics is nil unless Config.Metrics was set.
func (b *Ristretto) Metrics() *rc.Metrics { return b.c.Metrics }
