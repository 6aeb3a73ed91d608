package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/rowcache"
	"github.com/unkn0wn-root/rowcache/backend/bigcache"
	"github.com/unkn0wn-root/rowcache/backend/redis"
	"github.com/unkn0wn-root/rowcache/backend/ristretto"
	"github.com/unkn0wn-root/rowcache/codec"
	"github.com/unkn0wn-root/rowcache/internal/config"
)

// Handler type tags accepted in connections.*.handler.
const (
	HandlerRedis     = "redis"
	HandlerRistretto = "ristretto"
	HandlerBigCache  = "bigcache"
)

// buildRegistry registers a factory per handler type. A Redis client is only
// dialed when some connection uses it; the returned func closes it.
func buildRegistry(cfg *config.Config, hooks rowcache.Hooks) (rowcache.Registry, func() error, error) {
	rowCodec, err := newRowCodec(cfg.BigCache)
	if err != nil {
		return nil, nil, err
	}

	reg := rowcache.Registry{
		HandlerRistretto: ristretto.Factory(ristretto.Config{
			NumCounters: cfg.Ristretto.NumCounters,
			MaxCost:     cfg.Ristretto.MaxCost,
			BufferItems: cfg.Ristretto.BufferItems,
		}),
		HandlerBigCache: bigcache.Factory(bigcache.Config{
			Shards:             cfg.BigCache.Shards,
			MaxEntrySize:       cfg.BigCache.MaxEntrySize,
			HardMaxCacheSizeMB: cfg.BigCache.HardMaxCacheSizeMB,
			Codec:              rowCodec,
			Hooks:              hooks,
		}),
	}

	closeFn := noop
	if cfg.Handlers()[HandlerRedis] {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		reg[HandlerRedis] = redis.Factory(client)
		closeFn = client.Close
	}
	return reg, closeFn, nil
}

func newRowCodec(cfg config.BigCacheConfig) (codec.Row, error) {
	var c codec.Row
	switch cfg.Codec {
	case "", "msgpack":
		c = codec.Msgpack[rowcache.Row]{}
	case "json":
		c = codec.JSON[rowcache.Row]{UseNumber: true}
	case "cbor":
		cb, err := codec.NewCBOR[rowcache.Row](true)
		if err != nil {
			return nil, err
		}
		c = cb
	case "protobuf":
		c = codec.Struct{}
	default:
		return nil, fmt.Errorf("unknown codec %q", cfg.Codec)
	}
	if cfg.MaxDecode > 0 {
		c = codec.LimitCodec[rowcache.Row]{Inner: c, MaxDecode: cfg.MaxDecode}
	}
	return c, nil
}

// writeStats prints every non-zero counter as name{labels} value.
func writeStats(w io.Writer, reg *prometheus.Registry) error {
	mfs, err := reg.Gather()
	if err != nil {
		return err
	}
	var lines []string
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			v := m.GetCounter().GetValue()
			if v == 0 {
				continue
			}
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			lines = append(lines, fmt.Sprintf("%s{%s} %g", mf.GetName(), strings.Join(labels, ","), v))
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
