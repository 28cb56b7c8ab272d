package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the appliance block.
const (
	EnvURL      = "MIQ_URL"
	EnvUsername = "MIQ_USERNAME"
	EnvPassword = "MIQ_PASSWORD"
	EnvToken    = "MIQ_TOKEN"
	EnvInsecure = "MIQ_INSECURE_TLS"
)

// LoadFile reads and parses the configuration from a YAML file, applies
// environment overrides and validates the result.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Override adjusts a configuration after environment overrides and before
// validation. The CLI uses it for command-line flags.
type Override func(*Config)

// Parse decodes YAML data, applies environment overrides and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	return finish(&cfg, nil)
}

// Load reads path when it is set, otherwise builds a configuration from the
// environment alone. Overrides run last.
func Load(path string, overrides ...Override) (*Config, error) {
	var cfg Config
	if path != "" {
		// #nosec G304
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
		}
	}
	return finish(&cfg, overrides)
}

func finish(cfg *Config, overrides []Override) (*Config, error) {
	cfg.applyEnv()
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvURL); v != "" {
		c.Appliance.URL = v
	}
	if v := os.Getenv(EnvUsername); v != "" {
		c.Appliance.Username = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		c.Appliance.Password = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Appliance.Token = v
	}
	if v := os.Getenv(EnvInsecure); v == "true" || v == "1" {
		c.Appliance.InsecureTLS = true
	}
}
