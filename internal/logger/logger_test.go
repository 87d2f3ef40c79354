package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" INFO ":  zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"panic":   zapcore.PanicLevel,
		"fatal":   zapcore.FatalLevel,
		"dpanic":  zapcore.DPanicLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestParseFormat verifies format parsing with the console default.
func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, ok := ParseFormat("")
	require.True(t, ok)
	require.Equal(t, FormatConsole, f)

	f, ok = ParseFormat("JSON")
	require.True(t, ok)
	require.Equal(t, FormatJSON, f)

	_, ok = ParseFormat("xml")
	require.False(t, ok)
}

// TestContextHelpers ensures WithName and WithKV enrich the logger carried by the context.
func TestContextHelpers(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := NewWithFormat(zapcore.DebugLevel, FormatJSON, zapcore.AddSync(&buf))

	ctx := ToContext(context.Background(), l)
	ctx = WithName(ctx, "scheduler")
	ctx = WithKV(ctx, "group_id", 7)

	InfoKV(ctx, "hello", "alarm_id", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "hello", line["message"])
	require.Equal(t, "scheduler", line["logger"])
	require.InDelta(t, 7, line["group_id"], 0)
	require.InDelta(t, 3, line["alarm_id"], 0)
}

// TestFromContextFallsBackToGlobal checks the global logger is returned for bare contexts.
func TestFromContextFallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}
