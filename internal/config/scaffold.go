package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/natefinch/atomic"
)

// Sample is the config written by `rowcache init`.
const Sample = `// rowcache configuration (JSONC)
{
  // One entry per logical connection. handler: redis | ristretto | bigcache
  "connections": {
    "default": {
      "handler": "ristretto",
      "cache": {
        "key_template": "mc:%s:m:%s:%s:%s",
        "prefix": "app",
        "ttl": "1h",
        "negative_ttl": "5m"
      }
    }
  },
  "single_flight": true,

  "store": {
    "driver": "sqlite", // sqlite | dynamodb
    "dsn": "rowcache.db"
  },

  "redis": { "addr": "localhost:6379" },
  "ristretto": { "num_counters": 100000, "max_cost": 10000, "buffer_items": 64 },
  "bigcache": { "shards": 64, "codec": "msgpack" },

  "logging": { "driver": "zap", "level": "warn" }
}
`

var ErrExists = errors.New("config: file already exists")

// WriteSample atomically writes Sample to path. An existing file is kept
// unless force is set.
func WriteSample(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: stat %s: %w", path, err)
		}
	}
	if err := atomic.WriteFile(path, strings.NewReader(Sample)); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
