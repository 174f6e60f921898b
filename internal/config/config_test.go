package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.ListenAddr)
	assert.NotEmpty(t, cfg.DBPath)
	assert.Equal(t, "sqlite", cfg.StorageBackend)
	assert.Equal(t, 2, cfg.MinNewAreaAttachments)
	assert.Contains(t, cfg.Users, "user")
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTTL)
	assert.Equal(t, 1000, cfg.MaxSessions)
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("DB_PATH", "/custom/db.sqlite")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("SUBMIT_DELAY", "250ms")
	t.Setenv("SUBMIT_FAILURE_RATE", "0.5")
	t.Setenv("MIN_NEW_AREA_ATTACHMENTS", "3")
	t.Setenv("SESSION_IDLE_TTL", "5m")
	t.Setenv("MAX_SESSIONS", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/custom/db.sqlite", cfg.DBPath)
	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.Equal(t, 250*time.Millisecond, cfg.SubmitDelay)
	assert.Equal(t, 0.5, cfg.SubmitFailureRate)
	assert.Equal(t, 3, cfg.MinNewAreaAttachments)
	assert.Equal(t, 5*time.Minute, cfg.SessionIdleTTL)
	assert.Equal(t, 50, cfg.MaxSessions)
}

func TestLoadTestModeDisablesLatency(t *testing.T) {
	t.Setenv("AREAWIZARD_TEST_MODE", "1")
	t.Setenv("SUBMIT_DELAY", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.TestMode)
	assert.Zero(t, cfg.SubmitDelay)
	assert.Zero(t, cfg.LoginDelay)
	assert.Zero(t, cfg.SubmitFailureRate)
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeFile(t, "areawizard.yaml", `
listen_addr: ":7000"
files_path: /tmp/files
submit_delay: 10ms
session_idle_ttl: 2h
users:
  ana: clave123
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LISTEN_ADDR", ":7001")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7001", cfg.ListenAddr, "env overrides file")
	assert.Equal(t, "/tmp/files", cfg.FilesPath)
	assert.Equal(t, 10*time.Millisecond, cfg.SubmitDelay)
	assert.Equal(t, 2*time.Hour, cfg.SessionIdleTTL)
	assert.Equal(t, map[string]string{"ana": "clave123"}, cfg.Users)
	assert.Equal(t, "sqlite", cfg.StorageBackend, "unset keys keep defaults")
}

func TestLoadTOMLFile(t *testing.T) {
	path := writeFile(t, "areawizard.toml", `
storage_backend = "memory"
submit_failure_rate = 0.25
min_new_area_attachments = 1
max_sessions = 20

[users]
luis = "secreto99"
`)
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.Equal(t, 0.25, cfg.SubmitFailureRate)
	assert.Equal(t, 1, cfg.MinNewAreaAttachments)
	assert.Equal(t, 20, cfg.MaxSessions)
	assert.Equal(t, map[string]string{"luis": "secreto99"}, cfg.Users)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad duration", map[string]string{"SUBMIT_DELAY": "soon"}},
		{"bad rate", map[string]string{"SUBMIT_FAILURE_RATE": "2"}},
		{"bad backend", map[string]string{"STORAGE_BACKEND": "redis"}},
		{"zero session ttl", map[string]string{"SESSION_IDLE_TTL": "0s"}},
		{"bad max sessions", map[string]string{"MAX_SESSIONS": "many"}},
		{"no sessions allowed", map[string]string{"MAX_SESSIONS": "0"}},
		{"missing file", map[string]string{"CONFIG_FILE": "/nonexistent/areawizard.yaml"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}

	t.Run("unsupported extension", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", writeFile(t, "areawizard.ini", "x=1"))
		_, err := Load()
		assert.ErrorContains(t, err, "unsupported config file extension")
	})
}
