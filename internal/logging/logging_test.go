package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	level, err = ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestSetupLoggerConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := SetupLogger(&buf, "warn", "")
	require.NoError(t, err)
	defer closeFn()

	logger.Info("hidden")
	logger.Warn("converting float to integer with loss", "field", "n")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "field=n")
}

func TestSetupLoggerInvalidLevel(t *testing.T) {
	_, _, err := SetupLogger(&bytes.Buffer{}, "loud", "")
	assert.Error(t, err)
}

func TestFanout(t *testing.T) {
	var info, warn bytes.Buffer
	h := fanout{
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&warn, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}
	logger := slog.New(h).With("table", "items").WithGroup("row")

	logger.Info("first", "n", 1)
	logger.Warn("second", "n", 2)

	assert.Contains(t, info.String(), "msg=first")
	assert.Contains(t, info.String(), "msg=second")
	assert.Contains(t, info.String(), "table=items")
	assert.Contains(t, info.String(), "row.n=1")
	assert.NotContains(t, warn.String(), "msg=first")
	assert.Contains(t, warn.String(), "row.n=2")
}
