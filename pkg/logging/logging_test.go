package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"  debug  ", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	f, err = ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info", "json").Info("model loaded", "name", "admitguide-rf")

	out := buf.String()
	assert.Contains(t, out, `"msg":"model loaded"`)
	assert.Contains(t, out, `"name":"admitguide-rf"`)

	buf.Reset()
	New(&buf, "warn", "JSON").Info("hidden")
	assert.Empty(t, buf.String())
}

func TestNew_Text(t *testing.T) {
	t.Setenv(noColorEnvVar, "1")

	var buf bytes.Buffer
	New(&buf, "debug", "").Debug("index built", "vocabulary", 42)
	assert.Equal(t, "index built: vocabulary=42\n", buf.String())
}

func TestNew_UnknownValuesFallBack(t *testing.T) {
	t.Setenv(noColorEnvVar, "1")

	var buf bytes.Buffer
	logger := New(&buf, "loud", "xml")
	logger.Debug("hidden")
	logger.Info("shown")
	assert.Equal(t, "shown\n", buf.String())
}

func TestSetDefault(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	SetDefault("debug", FormatText)
	assert.True(t, slog.Default().Enabled(t.Context(), slog.LevelDebug))
}
