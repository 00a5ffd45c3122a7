package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// storage.type must be a known value.
	switch c.Storage.Type {
	case "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\" or \"postgres\", got %q", c.Storage.Type))
	}

	// If storage.type is "postgres", DSN or DSNFile must be set.
	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	}

	// auth.type must be a known value.
	switch c.Auth.Type {
	case "none":
	case "apikey":
		if len(c.Auth.APIKeys) == 0 {
			errs = append(errs, fmt.Errorf("auth.api_keys must not be empty when auth.type is \"apikey\""))
		}
	case "jwt":
		if c.Auth.JWT.JWKSURL == "" && c.Auth.JWT.Secret == "" && c.Auth.JWT.SecretFile == "" {
			errs = append(errs, fmt.Errorf("auth.jwt.jwks_url or auth.jwt.secret is required when auth.type is \"jwt\""))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}

	if c.Auth.RateLimitRPM < 0 {
		errs = append(errs, fmt.Errorf("auth.rate_limit_rpm must be >= 0, got %d", c.Auth.RateLimitRPM))
	}

	// logging.level must be a known value if set.
	switch strings.ToUpper(c.Logging.Level) {
	case "", "ERROR", "WARN", "WARNING", "INFO", "DEBUG", "TRACE":
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of ERROR, WARN, INFO, DEBUG, TRACE, got %q", c.Logging.Level))
	}

	// logging.format must be a known value if set.
	switch c.Logging.Format {
	case "", "text", "json":
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	// mcp.path must be absolute when enabled.
	if c.MCP.Enabled && !strings.HasPrefix(c.MCP.Path, "/") {
		errs = append(errs, fmt.Errorf("mcp.path must start with \"/\", got %q", c.MCP.Path))
	}

	// engines: custom entries need a known protocol and an endpoint.
	names := make([]string, 0, len(c.Engines))
	for name := range c.Engines {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ec := c.Engines[name]
		if name == "" {
			errs = append(errs, fmt.Errorf("engines: engine name must not be empty"))
			continue
		}
		if ec == nil {
			errs = append(errs, fmt.Errorf("engines.%s must not be empty", name))
			continue
		}
		switch ec.API {
		case "":
		case "openai":
			if ec.BaseURL == "" {
				errs = append(errs, fmt.Errorf("engines.%s.base_url is required for custom engines", name))
			}
		default:
			errs = append(errs, fmt.Errorf("engines.%s.api must be \"openai\", got %q", name, ec.API))
		}
		if name == DefaultEngine && ec.API != "" {
			errs = append(errs, fmt.Errorf("engines.%s cannot be a custom engine", name))
		}
	}

	// favorites need an engine.
	for i, f := range c.Favorites {
		if f.Engine == "" {
			errs = append(errs, fmt.Errorf("favorites[%d].engine is required", i))
		}
	}

	return errors.Join(errs...)
}
