// Package redis stores each cached row as a Redis hash.
//
// Redis deletes empty hashes, so every entry carries a placeholder field;
// a hash holding only the placeholder is a negative entry. All values come
// back as strings; use rowcache.Record's typed accessors to convert them.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cast"

	"github.com/unkn0wn-root/rowcache"
)

const (
	PlaceholderField = "HF-DATA"
	PlaceholderValue = "DEFAULT"
)

var ErrNilClient = errors.New("redis backend: nil client")

// incrIfExists increments one hash field only when the hash exists, so a
// missing entry is never recreated as a one-field hash.
var incrIfExists = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return redis.call('HINCRBYFLOAT', KEYS[1], ARGV[1], ARGV[2])
end
return false
`)

type Redis struct {
	rdb         goredis.UniversalClient
	cfg         rowcache.CacheConfig
	closeClient bool
}

var _ rowcache.Backend = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	Cache       rowcache.CacheConfig
	CloseClient bool // set true only if this backend exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, cfg: cfg.Cache, closeClient: cfg.CloseClient}, nil
}

// Factory builds backends sharing one client. The client is not closed by
// the backends; the caller owns it.
func Factory(client goredis.UniversalClient) rowcache.Factory {
	return func(_ string, cfg rowcache.CacheConfig) (rowcache.Backend, error) {
		return New(Config{Client: client, Cache: cfg})
	}
}

func (b *Redis) Get(ctx context.Context, key string) (rowcache.Row, bool, error) {
	m, err := b.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, false, err // transport/server error
	}
	if len(m) == 0 {
		return nil, false, nil // miss
	}
	return toRow(m), true, nil
}

func (b *Redis) GetMultiple(ctx context.Context, keys []string) ([]rowcache.Row, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	cmds := make([]*goredis.MapStringStringCmd, len(keys))
	_, err := b.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = p.HGetAll(ctx, k)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]rowcache.Row, 0, len(keys))
	for _, cmd := range cmds {
		if row := toRow(cmd.Val()); len(row) > 0 {
			out = append(out, row)
		}
	}
	return out, nil
}

// Set replaces the hash atomically (MULTI/EXEC) so stale fields never survive.
func (b *Redis) Set(ctx context.Context, key string, row rowcache.Row, ttl time.Duration) error {
	args := make([]any, 0, 2*len(row)+2)
	args = append(args, PlaceholderField, PlaceholderValue)
	for k, v := range row {
		s, err := fieldValue(v)
		if err != nil {
			return fmt.Errorf("redis backend: field %q: %w", k, err)
		}
		args = append(args, k, s)
	}
	_, err := b.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, args...)
		if ttl > 0 {
			p.Expire(ctx, key, ttl)
		}
		return nil
	})
	return err
}

// DeleteMultiple issues one DEL per key in a pipeline, which keeps it valid
// on Redis Cluster where keys may live in different slots.
func (b *Redis) DeleteMultiple(ctx context.Context, keys []string) (bool, error) {
	if len(keys) == 0 {
		return true, nil
	}
	_, err := b.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for _, k := range keys {
			p.Del(ctx, k)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *Redis) Has(ctx context.Context, key string) (bool, error) {
	n, err := b.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (b *Redis) IncrementField(ctx context.Context, key, field string, amount float64) (bool, error) {
	delta := strconv.FormatFloat(amount, 'f', -1, 64)
	err := incrIfExists.Run(ctx, b.rdb, []string{key}, field, delta).Err()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *Redis) Config() rowcache.CacheConfig { return b.cfg }

// Close releases the underlying redis client only when this backend owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (b *Redis) Close(context.Context) error {
	if b.closeClient {
		if err := b.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

func toRow(m map[string]string) rowcache.Row {
	row := make(rowcache.Row, len(m))
	for k, v := range m {
		if k == PlaceholderField {
			continue
		}
		row[k] = v
	}
	return row
}

func fieldValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case []byte:
		return string(x), nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	default:
		return cast.ToStringE(v)
	}
}
