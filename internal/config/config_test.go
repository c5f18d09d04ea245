package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 32, cfg.SendQueue)
	require.Equal(t, 54*time.Second, cfg.PingPeriod)
	require.Equal(t, 5*time.Second, cfg.StoreTimeout)
	require.Equal(t, "/media/", cfg.MediaURL)
	require.Equal(t, "kick", cfg.SlowMember)

	loc, err := cfg.Location()
	require.NoError(t, err)
	require.Equal(t, time.UTC, loc)
}

func TestLoadFile_YAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode: debug
port: 9090
send_queue: 4
display_timezone: Asia/Kolkata
badger_in_memory: true
`), 0o644))
	t.Setenv("CHAT_PORT", "9191")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Mode)
	require.Equal(t, 9191, cfg.Port)
	require.Equal(t, 4, cfg.SendQueue)
	require.True(t, cfg.BadgerInMemory)
	require.Equal(t, "Asia/Kolkata", cfg.DisplayTimezone)
}

func TestValidate_Rejects(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadFile(filepath.Join(t.TempDir(), "none.yaml"))
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.SendQueue = 0
	require.Error(t, Validate(cfg))

	cfg = base()
	cfg.SlowMember = "block"
	require.Error(t, Validate(cfg))

	cfg = base()
	cfg.Secret = "short"
	require.Error(t, Validate(cfg))

	cfg = base()
	cfg.DisplayTimezone = "Mars/Olympus"
	require.Error(t, Validate(cfg))

	cfg = base()
	cfg.PingPeriod = time.Minute
	cfg.PongWait = time.Second
	require.Error(t, Validate(cfg))
}
