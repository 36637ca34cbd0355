package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(&buf, "debug", "text")
	require.NoError(t, err)

	logger.Debug("parsed", "file", "calc.vmb")
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "file=calc.vmb")
}

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(&buf, "warn", "JSON")
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", "n", 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "WARN", rec["level"])
}

func TestSetupErrors(t *testing.T) {
	_, err := Setup(&bytes.Buffer{}, "loud", "text")
	assert.ErrorContains(t, err, `unknown log level "loud"`)

	_, err = Setup(&bytes.Buffer{}, "info", "xml")
	assert.ErrorContains(t, err, `unknown log format "xml"`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
