package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, ENGINEHUB_CONFIG env, ./config.yaml, /etc/enginehub/config.yaml)
//  3. Environment variable overrides
//  4. Engine defaults
//  5. File reference resolution (_file suffix)
//  6. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)
	applyEngineDefaults(&cfg)

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. ENGINEHUB_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/enginehub/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("ENGINEHUB_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/enginehub/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
// Engine entries are replaced wholesale; applyEngineDefaults fills them in.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps ENGINEHUB_* environment variables to config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ENGINEHUB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ENGINEHUB_STORAGE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("ENGINEHUB_POSTGRES_DSN"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("ENGINEHUB_AUTH_TYPE"); v != "" {
		cfg.Auth.Type = v
	}
	if v := os.Getenv("ENGINEHUB_JWT_SECRET"); v != "" {
		cfg.Auth.JWT.Secret = v
	}
	if v := os.Getenv("ENGINEHUB_AGENTS_DIR"); v != "" {
		cfg.Agents.Dir = v
	}
	if v := os.Getenv("ENGINEHUB_MCP_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MCP.Enabled = b
		}
	}

	// Credentials of the default engine.
	if v := os.Getenv("ENGINEHUB_WITSY_API_KEY"); v != "" {
		engineEntry(cfg, DefaultEngine).APIKey = v
	}
	if v := os.Getenv("ENGINEHUB_WITSY_BASE_URL"); v != "" {
		engineEntry(cfg, DefaultEngine).BaseURL = v
	}

	// ENGINEHUB_API_KEYS: JSON array of API key configs.
	if v := os.Getenv("ENGINEHUB_API_KEYS"); v != "" {
		keys, err := parseAPIKeysJSON(v)
		if err == nil && len(keys) > 0 {
			cfg.Auth.APIKeys = keys
		}
	}
}

// applyEngineDefaults makes sure the default engine exists and fills the
// fields YAML left empty.
func applyEngineDefaults(cfg *Config) {
	ec := engineEntry(cfg, DefaultEngine)
	if ec.BaseURL == "" {
		ec.BaseURL = DefaultWitsyURL
	}
	for _, ec := range cfg.Engines {
		if ec != nil && ec.Timeout == 0 {
			ec.Timeout = 60 * time.Second
		}
	}
}

func engineEntry(cfg *Config, name string) *EngineConfig {
	if cfg.Engines == nil {
		cfg.Engines = make(map[string]*EngineConfig)
	}
	ec := cfg.Engines[name]
	if ec == nil {
		ec = &EngineConfig{}
		cfg.Engines[name] = ec
	}
	return ec
}

// parseAPIKeysJSON parses a JSON array of API key configurations.
func parseAPIKeysJSON(jsonStr string) ([]APIKeyConfig, error) {
	var keys []APIKeyConfig
	if err := json.Unmarshal([]byte(jsonStr), &keys); err != nil {
		return nil, fmt.Errorf("parsing API keys JSON: %w", err)
	}
	return keys, nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// engines.*.api_key_file -> engines.*.api_key
	for name, ec := range cfg.Engines {
		if ec == nil {
			continue
		}
		if ec.APIKeyFile != "" && ec.APIKey == "" {
			val, err := readSecretFile(ec.APIKeyFile)
			if err != nil {
				return fmt.Errorf("engines.%s.api_key_file: %w", name, err)
			}
			ec.APIKey = val
		}
	}

	// storage.postgres.dsn_file -> storage.postgres.dsn
	if cfg.Storage.Postgres.DSNFile != "" && cfg.Storage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Storage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.postgres.dsn_file: %w", err)
		}
		cfg.Storage.Postgres.DSN = val
	}

	// auth.api_keys[*].key_file -> auth.api_keys[*].key
	for i := range cfg.Auth.APIKeys {
		if cfg.Auth.APIKeys[i].KeyFile != "" && cfg.Auth.APIKeys[i].Key == "" {
			val, err := readSecretFile(cfg.Auth.APIKeys[i].KeyFile)
			if err != nil {
				return fmt.Errorf("auth.api_keys[%d].key_file: %w", i, err)
			}
			cfg.Auth.APIKeys[i].Key = val
		}
	}

	// auth.jwt.secret_file -> auth.jwt.secret
	if cfg.Auth.JWT.SecretFile != "" && cfg.Auth.JWT.Secret == "" {
		val, err := readSecretFile(cfg.Auth.JWT.SecretFile)
		if err != nil {
			return fmt.Errorf("auth.jwt.secret_file: %w", err)
		}
		cfg.Auth.JWT.Secret = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
