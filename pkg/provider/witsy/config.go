package witsy

import (
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/enginehub/pkg/api"
	"github.com/rhuss/enginehub/pkg/config"
)

// Name is the engine identifier of the first-party provider.
const Name = config.DefaultEngine

// Config holds the witsy adapter configuration.
type Config struct {
	// APIKey authenticates against the catalog endpoint. When empty,
	// ListModels returns an empty catalog without any network call.
	APIKey string

	// BaseURL of the witsy API. Default: https://api.witsyai.com.
	BaseURL string

	// Timeout bounds a single catalog request. Default: 60s.
	Timeout time.Duration

	// HTTPClient allows injecting a custom HTTP client (useful for testing).
	// When set, Timeout is ignored.
	HTTPClient *http.Client
}

func (c *Config) applyDefaults() {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.BaseURL == "" {
		c.BaseURL = config.DefaultWitsyURL
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
}

// ConfigFrom binds an adapter configuration to an engine configuration.
// A nil engine configuration yields an unconfigured adapter.
func ConfigFrom(ec *config.EngineConfig) Config {
	if ec == nil {
		return Config{}
	}
	return Config{
		APIKey:  ec.APIKey,
		BaseURL: ec.BaseURL,
		Timeout: ec.Timeout,
	}
}

// IsConfigured reports whether the engine holds a credential.
func IsConfigured(ec *config.EngineConfig) bool {
	return ec != nil && ec.APIKey != ""
}

// IsReady reports whether the engine is configured and has a non-empty
// chat catalog.
func IsReady(ec *config.EngineConfig) bool {
	return IsConfigured(ec) && len(ec.Models.Models(api.KindChat)) > 0
}
