package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "maintdash.db", cfg.Database.DSN)
	assert.Equal(t, 10*time.Second, cfg.Probe.Timeout)
	assert.Contains(t, cfg.Probe.UserAgent, "Mozilla/5.0")
	assert.True(t, cfg.IsDev())
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
env: production
port: 9000
timezone: Asia/Bangkok
database:
  driver: postgres
  dsn: postgres://maint:secret@db/maint?sslmode=disable
session:
  secret: s3cret
  ttl: 12h
notify:
  type: line
  token: abc
probe:
  timeout: 3s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "line", cfg.Notify.Type)
	assert.Equal(t, 3*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, "Asia/Bangkok", cfg.Location().String())
	assert.False(t, cfg.IsDev())
}

func TestEnvOverridesSecrets(t *testing.T) {
	t.Setenv("MAINTDASH_SESSION_SECRET", "from-env")
	t.Setenv("MAINTDASH_NOTIFY_TOKEN", "token-env")

	cfg, err := Load(writeConfig(t, "session:\n  secret: from-file\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Session.Secret)
	assert.Equal(t, "token-env", cfg.Notify.Token)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown driver", "database:\n  driver: mysql\n  dsn: x\n"},
		{"postgres without dsn", "database:\n  driver: postgres\n"},
		{"production without secret", "env: production\n"},
		{"bad timezone", "timezone: Mars/Olympus\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "port: [1, 2"))
	assert.Error(t, err)
}
