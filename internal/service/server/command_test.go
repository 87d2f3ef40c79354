package server

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-scheduler/internal/config"
)

// TestLoadSettings_OverridesFile checks viper values win over the YAML file.
func TestLoadSettings_OverridesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, config.Save(path, &config.Config{GRPCAddress: "127.0.0.1:50100", MaxMessageLength: 32}))

	v := viper.New()
	v.Set("grpc_addr", "127.0.0.1:0")

	settings, err := loadSettings(&Options{ConfigPath: path, Overrides: v})
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:0", settings.GRPCAddress)
	require.Equal(t, 32, settings.MaxMessageLength)
}

// TestRun_ConsoleEndsProcess runs the full process with the console and the REST
// front door, and checks it exits once the console input ends.
func TestRun_ConsoleEndsProcess(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	v := viper.New()
	v.Set("grpc_addr", "127.0.0.1:0")
	v.Set("http_addr", "127.0.0.1:0")
	v.Set("journal_path", filepath.Join(dir, "journal.db"))

	var (
		out       bytes.Buffer
		addresses = make(chan Addresses, 1)
		stdin     = strings.NewReader("Start_Alarm(1): Group(1) 600 from console\nView_Alarms\n")
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := Run(ctx, &Options{
		ConfigPath: filepath.Join(dir, "missing.yaml"),
		Overrides:  v,
		Console:    true,
		Stdin:      stdin,
		Stdout:     &out,
		Ready:      func(a Addresses) { addresses <- a },
	})
	require.NoError(t, err)

	bound := <-addresses
	require.NotEmpty(t, bound.GRPC)
	require.NotEmpty(t, bound.HTTP)

	require.Contains(t, out.String(), "from console")
}
