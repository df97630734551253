package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
session_key: "secret"
server_url: "http://example.com/"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:3002", cfg.Listen)
	assert.Equal(t, "http://example.com", cfg.ServerURL)
	assert.Equal(t, "./data/midnight.db", cfg.Database.Path)
	assert.Equal(t, "1234", cfg.Admin.DefaultPassword)
	assert.Equal(t, BackendTypeMemory, cfg.Realtime.Type)
	assert.Equal(t, "*/5 * * * *", cfg.Realtime.ResyncSchedule)
	assert.Equal(t, BackendTypeMemory, cfg.Cache.Type)
	assert.Equal(t, 50, cfg.Cache.RecentLimit)
	assert.Equal(t, 172800, cfg.SessionMaxAge)
	assert.False(t, cfg.Email.Enabled)
	assert.Equal(t, "https://ntfy.sh", cfg.Ntfy.ServerURL)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, `session_key: "secret"`)
	t.Setenv("MIDNIGHT_API_KEY", "anon-key")
	t.Setenv("MIDNIGHT_ADMIN_DEFAULT_PASSWORD", "changeme")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "anon-key", cfg.APIKey)
	assert.Equal(t, "changeme", cfg.Admin.DefaultPassword)
}

func TestLoad_MissingSessionKey(t *testing.T) {
	path := writeConfig(t, `listen: "127.0.0.1:8080"`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session key is required")
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			SessionKey: "secret",
			Database:   &DatabaseConfig{Path: "db"},
			Admin:      &AdminConfig{DefaultPassword: "1234"},
			Realtime:   &RealtimeConfig{Type: BackendTypeMemory},
			Cache:      &CacheConfig{Type: BackendTypeMemory, RecentLimit: 10},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "redis realtime without url", mutate: func(c *Config) { c.Realtime.Type = BackendTypeRedis }, wantErr: "realtime: redis URL is required"},
		{name: "unknown cache type", mutate: func(c *Config) { c.Cache.Type = "memcached" }, wantErr: `cache: unknown type "memcached"`},
		{name: "empty default password", mutate: func(c *Config) { c.Admin.DefaultPassword = "" }, wantErr: "admin default password"},
		{name: "email without host", mutate: func(c *Config) { c.Email = &EmailConfig{Enabled: true} }, wantErr: "SMTP host is required"},
		{name: "webpush without keys", mutate: func(c *Config) { c.WebPush = &WebPushConfig{Enabled: true} }, wantErr: "webpush public and private keys"},
		{name: "nil realtime gets memory default", mutate: func(c *Config) { c.Realtime = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := validateConfig(c)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
