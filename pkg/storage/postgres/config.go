package postgres

import (
	"time"

	"github.com/rhuss/enginehub/pkg/config"
)

// Pool defaults.
const (
	DefaultMaxConns        = 25
	DefaultMinConns        = 1
	DefaultMaxConnLifetime = 5 * time.Minute

	// DefaultApplicationName tags catalog connections in pg_stat_activity.
	DefaultApplicationName = "enginehub"
)

// Config holds the catalog store connection settings.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration

	// ApplicationName is sent as application_name unless the DSN sets one.
	ApplicationName string

	// MigrateOnStart applies the embedded migrations in New.
	MigrateOnStart bool
}

// ConfigFrom maps the storage.postgres section of the hub configuration.
// The DSN is expected to have its _file variant resolved already.
func ConfigFrom(pc config.PostgresConfig) Config {
	return Config{
		DSN:            pc.DSN,
		MaxConns:       pc.MaxConns,
		MigrateOnStart: pc.MigrateOnStart,
	}
}

func (c *Config) defaults() {
	if c.MaxConns <= 0 {
		c.MaxConns = DefaultMaxConns
	}
	if c.MinConns <= 0 {
		c.MinConns = DefaultMinConns
	}
	if c.MinConns > c.MaxConns {
		c.MinConns = c.MaxConns
	}
	if c.MaxConnLifetime <= 0 {
		c.MaxConnLifetime = DefaultMaxConnLifetime
	}
	if c.ApplicationName == "" {
		c.ApplicationName = DefaultApplicationName
	}
}
