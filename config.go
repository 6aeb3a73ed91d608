package rowcache

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultKeyTemplate = "mc:%s:m:%s:%s:%s"
	DefaultTTL         = time.Hour
	DefaultConnection  = "default"
	DefaultPrimaryKey  = "id"
)

// CacheConfig tunes one connection's cache.
//
// KeyTemplate takes four ordered arguments: prefix, table name,
// primary-key name and the rendered id.
type CacheConfig struct {
	KeyTemplate string        `mapstructure:"key_template"`
	Prefix      string        `mapstructure:"prefix"`
	TTL         time.Duration `mapstructure:"ttl"`
	// NegativeTTL applies to entries recording a missing row. 0 => TTL.
	NegativeTTL time.Duration `mapstructure:"negative_ttl"`
}

// withDefaults fills zero fields. The prefix falls back to the connection name.
func (c CacheConfig) withDefaults(connection string) CacheConfig {
	c.KeyTemplate = coalesce(c.KeyTemplate, DefaultKeyTemplate)
	c.Prefix = coalesce(c.Prefix, connection)
	c.TTL = coalesce(c.TTL, DefaultTTL)
	c.NegativeTTL = coalesce(c.NegativeTTL, c.TTL)
	return c
}

func (c CacheConfig) validate() error {
	if c.TTL < 0 || c.NegativeTTL < 0 {
		return fmt.Errorf("negative ttl")
	}
	probe := fmt.Sprintf(c.KeyTemplate, "p", "t", "k", "i")
	if strings.Contains(probe, "%!") {
		return fmt.Errorf("key template %q must take exactly 4 arguments", c.KeyTemplate)
	}
	return nil
}

// EntityType describes where records of one kind live.
type EntityType struct {
	Connection string
	Table      string
	PrimaryKey string
}

func (e EntityType) normalize() EntityType {
	e.Connection = coalesce(e.Connection, DefaultConnection)
	e.PrimaryKey = coalesce(e.PrimaryKey, DefaultPrimaryKey)
	return e
}
