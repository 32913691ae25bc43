package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config dir and .env lookup at a fresh temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	return dir
}

func write(t *testing.T, path, body string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(LoadOptions{EnvFile: filepath.Join(dir, "missing.env")})
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, filepath.Join(dir, "billr", "billr.db"), cfg.Storage.Path)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 30*time.Second, cfg.Remote.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.Remote.Timeout)
	assert.Empty(t, cfg.Remote.URL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, time.Local, cfg.Loc())
	assert.Empty(t, cfg.ConfigFile)
}

func TestConfigFileFromConfigDir(t *testing.T) {
	dir := isolate(t)
	write(t, filepath.Join(dir, "billr", "billr.yaml"), `
server:
  addr: ":9090"
  cors_origins: ["https://app.example.com"]
remote:
  url: http://tracker.local:8080
  poll_interval: 5s
location: Europe/Berlin
`)

	cfg, err := Load(LoadOptions{EnvFile: filepath.Join(dir, "none.env")})
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "http://tracker.local:8080", cfg.Remote.URL)
	assert.Equal(t, 5*time.Second, cfg.Remote.PollInterval)
	assert.Equal(t, "Europe/Berlin", cfg.Loc().String())
	assert.NotEmpty(t, cfg.ConfigFile)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := write(t, filepath.Join(dir, "custom.yaml"), "log:\n  level: debug\nserver:\n  addr: \":9090\"\n")
	t.Setenv("BILLR_SERVER_ADDR", ":7070")
	t.Setenv("BILLR_STORAGE_DRIVER", "postgres")
	t.Setenv("BILLR_STORAGE_DSN", "postgres://localhost/billr")

	cfg, err := Load(LoadOptions{ConfigFile: path, EnvFile: filepath.Join(dir, "none.env")})
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://localhost/billr", cfg.Storage.DSN)
}

func TestDotEnvFile(t *testing.T) {
	dir := isolate(t)
	env := write(t, filepath.Join(dir, ".env"), "BILLR_EXPORT_DIR=/tmp/billr-exports\n")
	t.Cleanup(func() { os.Unsetenv("BILLR_EXPORT_DIR") })

	cfg, err := Load(LoadOptions{EnvFile: env})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/billr-exports", cfg.Export.Dir)
}

func TestMissingExplicitConfigFile(t *testing.T) {
	dir := isolate(t)
	_, err := Load(LoadOptions{ConfigFile: filepath.Join(dir, "nope.yaml"), EnvFile: filepath.Join(dir, "none.env")})
	require.Error(t, err)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"BILLR_STORAGE_DRIVER": "mysql"}},
		{"postgres without dsn", map[string]string{"BILLR_STORAGE_DRIVER": "postgres"}},
		{"bad remote url", map[string]string{"BILLR_REMOTE_URL": "tracker.local"}},
		{"zero poll interval", map[string]string{"BILLR_REMOTE_POLL_INTERVAL": "0s"}},
		{"bad log level", map[string]string{"BILLR_LOG_LEVEL": "chatty"}},
		{"bad location", map[string]string{"BILLR_LOCATION": "Mars/Olympus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(LoadOptions{EnvFile: filepath.Join(dir, "none.env")})
			require.Error(t, err)
		})
	}
}
