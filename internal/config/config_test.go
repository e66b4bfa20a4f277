package config

import (
	"os"
	"path/filepath"
	"testing"

	"iptrail/internal/constants"
	"iptrail/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `{
		"server": {"port": 9090},
		"database": {"path": "/tmp/iptrail.db"},
		"resolver": {"trustAllProxies": true, "trustedProxies": ["10.0.0.0/8"]},
		"async": {"corePoolSize": 4, "maxPoolSize": 8},
		"capture": {"userIdHeader": "X-Auth-Subject", "options": {"storeUserAgent": true, "async": true}},
		"log_level": "debug",
		"retentionDays": 30
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/iptrail.db", cfg.Database.Path)
	assert.True(t, cfg.Resolver.TrustAllProxies)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.Resolver.TrustedProxies)
	assert.Equal(t, 4, cfg.Async.CorePoolSize)
	assert.Equal(t, 8, cfg.Async.MaxPoolSize)
	assert.Equal(t, "X-Auth-Subject", cfg.Capture.UserIDHeader)
	assert.True(t, cfg.Capture.Options.StoreUserAgent)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30, cfg.RetentionDays)
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `{"database": {"path": "/tmp/iptrail.db"}}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, constants.DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, constants.DefaultServerReadTimeoutSec, cfg.Server.ReadTimeoutSec)
	assert.Equal(t, constants.DefaultCorePoolSize, cfg.Async.CorePoolSize)
	assert.Equal(t, constants.DefaultMaxPoolSize, cfg.Async.MaxPoolSize)
	assert.Equal(t, constants.DefaultQueueCapacity, cfg.Async.QueueCapacity)
	assert.Equal(t, constants.DefaultUserIDHeader, cfg.Capture.UserIDHeader)
	assert.Equal(t, constants.DefaultRetentionDays, cfg.RetentionDays)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Resolver.TrustAllProxies)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "missing database path",
			content: `{}`,
			wantErr: ErrMissingDBPath,
		},
		{
			name:    "invalid port",
			content: `{"database": {"path": "/tmp/x.db"}, "server": {"port": 70000}}`,
		},
		{
			name:    "max pool smaller than core pool",
			content: `{"database": {"path": "/tmp/x.db"}, "async": {"corePoolSize": 8, "maxPoolSize": 2}}`,
		},
		{
			name:    "negative retention",
			content: `{"database": {"path": "/tmp/x.db"}, "retentionDays": -1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				var cfgErr models.ConfigError
				assert.ErrorAs(t, err, &cfgErr)
			}
		})
	}
}

func TestLoadConfigBadInputs(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "{not json"))
		assert.Error(t, err)
	})

	t.Run("traversal path rejected", func(t *testing.T) {
		_, err := LoadConfig("../../etc/config.json")
		assert.Error(t, err)
	})
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `{"database": {"path": "/tmp/original.db"}, "log_level": "info"}`)

	t.Setenv("IPTRAIL_DB_PATH", "/tmp/override.db")
	t.Setenv("IPTRAIL_PORT", "9999")
	t.Setenv("IPTRAIL_LOG_LEVEL", "debug")
	t.Setenv("IPTRAIL_TRUST_ALL_PROXIES", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Resolver.TrustAllProxies)
}

func TestEnvironmentOverrideInvalidPortIgnored(t *testing.T) {
	path := writeConfig(t, `{"database": {"path": "/tmp/x.db"}, "server": {"port": 9090}}`)

	t.Setenv("IPTRAIL_PORT", "not-a-port")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}
