// Manages server configuration stored in server_config.json.

// Package storage holds the on-disk configuration of the server.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ConfigFileName is the name of the configuration file in the data directory.
const ConfigFileName = "server_config.json"

// ServerConfig stores server-wide settings.
// Loaded from server_config.json, created with defaults if missing.
type ServerConfig struct {
	Quotas     ServerQuotas `json:"quotas"`
	RateLimits RateLimits   `json:"rate_limits"`
}

// RateLimits is expressed in requests per minute per client IP.
// 0 means unlimited.
type RateLimits struct {
	// ReadRatePerMin limits GET requests.
	ReadRatePerMin int `json:"read_rate_per_min"`
	// WriteRatePerMin limits POST, PUT and DELETE requests.
	WriteRatePerMin int `json:"write_rate_per_min"`
}

// Validate checks that rate limit values are non-negative.
func (r *RateLimits) Validate() error {
	if r.ReadRatePerMin < 0 {
		return errors.New("read_rate_per_min must be non-negative")
	}
	if r.WriteRatePerMin < 0 {
		return errors.New("write_rate_per_min must be non-negative")
	}
	return nil
}

// DefaultRateLimits returns the default rate limits.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		ReadRatePerMin:  6000,
		WriteRatePerMin: 600,
	}
}

// ServerQuotas defines server-wide resource limits.
type ServerQuotas struct {
	// MaxRequestBodyBytes limits the size of any single HTTP request body.
	MaxRequestBodyBytes int64 `json:"max_request_body_bytes"`
}

// Validate checks the quota values.
func (q *ServerQuotas) Validate() error {
	if q.MaxRequestBodyBytes <= 0 {
		return errors.New("max_request_body_bytes must be positive")
	}
	return nil
}

// DefaultServerQuotas returns the default server-wide quotas.
func DefaultServerQuotas() ServerQuotas {
	return ServerQuotas{
		MaxRequestBodyBytes: 1024 * 1024, // 1 MiB
	}
}

// DefaultServerConfig returns the configuration written on first start.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{Quotas: DefaultServerQuotas(), RateLimits: DefaultRateLimits()}
}

// Validate checks that the configuration is valid.
func (c *ServerConfig) Validate() error {
	if err := c.Quotas.Validate(); err != nil {
		return fmt.Errorf("quotas: %w", err)
	}
	if err := c.RateLimits.Validate(); err != nil {
		return fmt.Errorf("rate_limits: %w", err)
	}
	return nil
}

// LoadServerConfig loads configuration from dataDir/server_config.json.
// Creates the file with defaults if it doesn't exist. Fields absent from the
// file keep their default value.
func LoadServerConfig(dataDir string) (*ServerConfig, error) {
	cfg := DefaultServerConfig()
	data, err := os.ReadFile(filepath.Join(dataDir, ConfigFileName)) //nolint:gosec // G304: path is built from dataDir
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := cfg.Save(dataDir); err != nil {
			return nil, err
		}
		return &cfg, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", ConfigFileName, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ConfigFileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ConfigFileName, err)
	}
	return &cfg, nil
}

// Save writes the configuration to dataDir/server_config.json.
func (c *ServerConfig) Save(dataDir string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(filepath.Join(dataDir, ConfigFileName), data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", ConfigFileName, err)
	}
	return nil
}
