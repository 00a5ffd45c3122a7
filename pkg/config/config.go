// Package config provides unified configuration for the engine hub.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (ENGINEHUB_ prefix)
//  4. Engine defaults for entries the YAML file left partially filled
//  5. File reference resolution (_file suffix fields)
//  6. Validation
package config

import (
	"time"

	"github.com/rhuss/enginehub/pkg/api"
)

// DefaultEngine is the name of the first-party engine every hub knows about.
const DefaultEngine = "witsy"

// DefaultWitsyURL is the base URL of the first-party catalog endpoint.
const DefaultWitsyURL = "https://api.witsyai.com"

// Config holds all configuration for the engine hub.
type Config struct {
	Server        ServerConfig             `yaml:"server"`
	Storage       StorageConfig            `yaml:"storage"`
	Auth          AuthConfig               `yaml:"auth"`
	MCP           MCPConfig                `yaml:"mcp"`
	Observability ObservabilityConfig      `yaml:"observability"`
	Logging       LoggingConfig            `yaml:"logging"`
	Engines       map[string]*EngineConfig `yaml:"engines"`
	Favorites     []FavoriteConfig         `yaml:"favorites"`
	Agents        AgentsConfig             `yaml:"agents"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig selects log verbosity and debug categories.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // ERROR, WARN, INFO, DEBUG, TRACE; default: INFO
	Debug  string `yaml:"debug"`  // comma-separated debug categories
	Format string `yaml:"format"` // "text" or "json", default: "text"
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 120s
}

// EngineConfig holds the settings of one engine. Models is the cached
// catalog; it is filled by the catalog loader and never read from YAML.
type EngineConfig struct {
	// API selects the wire protocol of a custom engine ("openai").
	// Empty for built-in engines.
	API        string        `yaml:"api"`
	Label      string        `yaml:"label"`
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	APIKeyFile string        `yaml:"api_key_file"` // _file variant for api_key
	Timeout    time.Duration `yaml:"timeout"`

	// Model is the last selected chat model.
	Model string `yaml:"model"`

	Models *api.ModelsList `yaml:"-"`
}

// IsCustom reports whether the engine is a user-defined endpoint.
func (e *EngineConfig) IsCustom() bool {
	return e != nil && e.API != ""
}

// FavoriteConfig pins an engine/model pair for quick selection.
type FavoriteConfig struct {
	ID     string `yaml:"id"`
	Engine string `yaml:"engine"`
	Model  string `yaml:"model"`
}

// AgentsConfig locates on-disk agent definitions.
type AgentsConfig struct {
	Dir string `yaml:"dir"` // directory of JSON agent files; empty disables agents
}

// StorageConfig holds catalog persistence settings.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory" or "postgres", default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type    string         `yaml:"type"`     // "none", "apikey", "jwt", default: "none"
	APIKeys []APIKeyConfig `yaml:"api_keys"` // API key entries for type=apikey
	JWT     JWTConfig      `yaml:"jwt"`      // settings for type=jwt

	// RateLimitRPM caps requests per subject and minute. 0 disables it.
	RateLimitRPM int `yaml:"rate_limit_rpm"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key     string   `yaml:"key" json:"key"`
	KeyFile string   `yaml:"key_file" json:"key_file"` // _file variant for key
	Subject string   `yaml:"subject" json:"subject"`
	Scopes  []string `yaml:"scopes" json:"scopes"`
}

// JWTConfig holds bearer token validation settings. Either a JWKS URL
// (RSA keys) or a shared secret (HMAC) must be set.
type JWTConfig struct {
	Issuer     string `yaml:"issuer"`
	Audience   string `yaml:"audience"`
	JWKSURL    string `yaml:"jwks_url"`
	Secret     string `yaml:"secret"`
	SecretFile string `yaml:"secret_file"` // _file variant for secret
	UserClaim  string `yaml:"user_claim"`  // default: "sub"
}

// MCPConfig holds the settings of the embedded MCP endpoint.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled"` // default: false
	Path    string `yaml:"path"`    // default: "/mcp"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		Storage: StorageConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Auth: AuthConfig{
			Type: "none",
		},
		MCP: MCPConfig{
			Path: "/mcp",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
		Engines: map[string]*EngineConfig{
			DefaultEngine: {
				BaseURL: DefaultWitsyURL,
				Timeout: 60 * time.Second,
			},
		},
	}
}

// Engine returns the configuration of the named engine, or nil.
func (c *Config) Engine(name string) *EngineConfig {
	if c == nil || c.Engines == nil {
		return nil
	}
	return c.Engines[name]
}
