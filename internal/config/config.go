// Package config loads the rowcache command's settings with viper.
//
// YAML, TOML and JSON files are read by viper directly; .jsonc files are
// standardized with hujson first. Every key can be overridden from the
// environment with the ROWCACHE_ prefix (ROWCACHE_STORE_DSN, ...).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/tailscale/hujson"

	"github.com/unkn0wn-root/rowcache"
)

const EnvPrefix = "ROWCACHE"

type Config struct {
	// Connection names are lowercased by viper.
	Connections  map[string]rowcache.ConnectionConfig `mapstructure:"connections" validate:"required,dive"`
	SingleFlight bool                                 `mapstructure:"single_flight"`
	Disabled     bool                                 `mapstructure:"disabled"`

	Store     StoreConfig     `mapstructure:"store"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Ristretto RistrettoConfig `mapstructure:"ristretto"`
	BigCache  BigCacheConfig  `mapstructure:"bigcache"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite dynamodb"`
	// DSN is the SQLite database path.
	DSN            string `mapstructure:"dsn" validate:"required_if=Driver sqlite"`
	Region         string `mapstructure:"region"`
	Endpoint       string `mapstructure:"endpoint" validate:"omitempty,url"` // e.g. DynamoDB Local
	ConsistentRead bool   `mapstructure:"consistent_read"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required,hostname_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

type RistrettoConfig struct {
	NumCounters int64 `mapstructure:"num_counters" validate:"gt=0"`
	MaxCost     int64 `mapstructure:"max_cost" validate:"gt=0"`
	BufferItems int64 `mapstructure:"buffer_items" validate:"gt=0"`
}

type BigCacheConfig struct {
	Shards             int    `mapstructure:"shards" validate:"gt=0"`
	MaxEntrySize       int    `mapstructure:"max_entry_size" validate:"gte=0"`
	HardMaxCacheSizeMB int    `mapstructure:"hard_max_cache_size_mb" validate:"gte=0"`
	Codec              string `mapstructure:"codec" validate:"oneof=msgpack json cbor protobuf"`
	MaxDecode          int    `mapstructure:"max_decode" validate:"gte=0"`
}

type LoggingConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=zap logrus zerolog slog none"`
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("ristretto.num_counters", 100_000)
	v.SetDefault("ristretto.max_cost", 10_000)
	v.SetDefault("ristretto.buffer_items", 64)
	v.SetDefault("bigcache.shards", 64)
	v.SetDefault("bigcache.codec", "msgpack")
	v.SetDefault("logging.driver", "zap")
	v.SetDefault("logging.level", "warn")
}

// Load reads path, applies defaults and environment overrides, and validates
// the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := read(v, path); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func read(v *viper.Viper, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".jsonc") {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
		std, err := hujson.Standardize(data)
		if err != nil {
			return fmt.Errorf("config: %s: invalid JSONC: %w", path, err)
		}
		v.SetConfigType("json")
		if err := v.ReadConfig(bytes.NewReader(std)); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports the first rule each invalid field breaks.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// Handlers returns the distinct handler types the connections use.
func (c *Config) Handlers() map[string]bool {
	out := make(map[string]bool, len(c.Connections))
	for _, cc := range c.Connections {
		out[cc.Handler] = true
	}
	return out
}
