package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"iptrail/internal/constants"
	"iptrail/internal/models"
	"iptrail/internal/security"
)

var (
	ErrMissingDBPath = models.ConfigError{Message: "missing database path"}
)

func LoadConfig(path string) (*models.Config, error) {
	// Validate config file path to prevent directory traversal
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated by security.ValidateFilePath above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return models.ConfigError{Message: fmt.Sprintf("invalid server port: %d", c.Server.Port)}
	}
	if c.Async.CorePoolSize < 0 {
		return models.ConfigError{Message: "async corePoolSize cannot be negative"}
	}
	if c.Async.MaxPoolSize != 0 && c.Async.MaxPoolSize < c.Async.CorePoolSize {
		return models.ConfigError{Message: "async maxPoolSize cannot be smaller than corePoolSize"}
	}
	if c.RetentionDays < 0 {
		return models.ConfigError{Message: "retentionDays cannot be negative"}
	}

	applyDefaults(c)

	return nil
}

func applyDefaults(c *models.Config) {
	if c.Server.Port == 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec == 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec == 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec == 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}

	if c.Async.CorePoolSize == 0 {
		c.Async.CorePoolSize = constants.DefaultCorePoolSize
	}
	if c.Async.MaxPoolSize == 0 {
		c.Async.MaxPoolSize = constants.DefaultMaxPoolSize
	}
	if c.Async.QueueCapacity == 0 {
		c.Async.QueueCapacity = constants.DefaultQueueCapacity
	}
	if c.Async.ShutdownDrainTimeoutSec == 0 {
		c.Async.ShutdownDrainTimeoutSec = constants.DefaultShutdownDrainTimeoutSec
	}

	if c.Capture.UserIDHeader == "" {
		c.Capture.UserIDHeader = constants.DefaultUserIDHeader
	}

	if c.RetentionDays == 0 {
		c.RetentionDays = constants.DefaultRetentionDays
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func applyEnvironmentOverrides(c *models.Config) {
	if path := os.Getenv("IPTRAIL_DB_PATH"); path != "" {
		c.Database.Path = path
	}

	if port := os.Getenv("IPTRAIL_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 && p <= 65535 {
			c.Server.Port = p
		}
	}

	if level := os.Getenv("IPTRAIL_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}

	if trust := os.Getenv("IPTRAIL_TRUST_ALL_PROXIES"); trust != "" {
		c.Resolver.TrustAllProxies = trust == "true"
	}
}
