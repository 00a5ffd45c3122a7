package openai

import (
	"net/http"
	"time"

	"github.com/rhuss/enginehub/pkg/config"
)

// Config holds the settings of one custom engine.
type Config struct {
	// Name is the engine identifier (the key under engines in the config file).
	Name string

	// Label is the display name. Defaults to Name.
	Label string

	// BaseURL of the OpenAI-compatible API, including the version prefix
	// (e.g., "http://localhost:8000/v1").
	BaseURL string

	// APIKey is sent as a bearer token. Optional for local servers.
	APIKey string

	// Timeout bounds non-streaming requests. Default: 60s.
	Timeout time.Duration

	// HTTPClient allows injecting a custom HTTP client (useful for testing).
	HTTPClient *http.Client
}

func (c *Config) applyDefaults() {
	if c.Label == "" {
		c.Label = c.Name
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
}

// ConfigFrom builds a custom engine configuration from an engine entry.
func ConfigFrom(name string, ec *config.EngineConfig) Config {
	if ec == nil {
		return Config{Name: name}
	}
	return Config{
		Name:    name,
		Label:   ec.Label,
		BaseURL: ec.BaseURL,
		APIKey:  ec.APIKey,
		Timeout: ec.Timeout,
	}
}
