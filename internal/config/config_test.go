package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

// TestValidateDefaults checks an empty configuration gets every default.
func TestValidateDefaults(t *testing.T) {
	t.Parallel()

	cfg := new(Config)
	require.NoError(t, Validate(cfg))

	require.Equal(t, DefaultGRPCAddress, cfg.GRPCAddress)
	require.Equal(t, DefaultDisplayInterval, cfg.DisplayInterval)
	require.Equal(t, DefaultMaxMessageLength, cfg.MaxMessageLength)
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.Equal(t, DefaultLogLevel, cfg.LogLevel)
	require.Equal(t, "console", cfg.LogFormat)
	require.Empty(t, cfg.HTTPAddress)
	require.Empty(t, cfg.JournalPath)
}

// TestValidateRejects checks format and range validations.
func TestValidateRejects(t *testing.T) {
	t.Parallel()

	cases := map[string]*Config{
		"bad grpc address":  {GRPCAddress: "bad:address"},
		"bad http address":  {HTTPAddress: "nowhere"},
		"negative interval": {DisplayInterval: -time.Second},
		"negative length":   {MaxMessageLength: -1},
		"unknown level":     {LogLevel: "loud"},
		"unknown format":    {LogFormat: "xml"},
	}

	for name, cfg := range cases {
		require.ErrorIs(t, Validate(cfg), errInvalidSetting, name)
	}

	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	settings := &Config{
		GRPCAddress:      "127.0.0.1:50071",
		HTTPAddress:      "127.0.0.1:8081",
		JournalPath:      "journal.db",
		DisplayInterval:  2 * time.Second,
		MaxMessageLength: 128,
		LogFormat:        "json",
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())
}

// TestLoadOrDefault checks a missing file falls back to defaults while a broken one fails.
func TestLoadOrDefault(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, err := LoadOrDefault(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("display_interval: [1"), DefaultFilePermissions))

	_, err = LoadOrDefault(broken)
	require.Error(t, err)
}

// TestOverlay checks viper values replace file values.
func TestOverlay(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set("grpc_addr", "127.0.0.1:60000")
	v.Set("display_interval", "250ms")
	v.Set("max_message_length", 10)

	cfg := &Config{GRPCAddress: "127.0.0.1:1", LogLevel: "debug"}
	require.NoError(t, Overlay(cfg, v))

	require.Equal(t, "127.0.0.1:60000", cfg.GRPCAddress)
	require.Equal(t, 250*time.Millisecond, cfg.DisplayInterval)
	require.Equal(t, 10, cfg.MaxMessageLength)
	require.Equal(t, "debug", cfg.LogLevel)
}
