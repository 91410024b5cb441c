package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlainLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	return slog.New(NewTextHandler(buf, level, false))
}

func TestTextHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	newPlainLogger(&buf, slog.LevelInfo).Info("search", "query", "machine learning", "k", 5, "empty", "")

	assert.Equal(t, `search: query="machine learning" k=5 empty=""`+"\n", buf.String())
}

func TestTextHandler_Colors(t *testing.T) {
	tests := []struct {
		level slog.Level
		color string
	}{
		{slog.LevelDebug, colorGray},
		{slog.LevelInfo, colorGreen},
		{slog.LevelWarn, colorYellow},
		{slog.LevelError, colorRed},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			slog.New(NewTextHandler(&buf, slog.LevelDebug, true)).Log(t.Context(), tt.level, "msg")

			out := buf.String()
			assert.True(t, strings.HasPrefix(out, tt.color))
			assert.Contains(t, out, colorReset)
		})
	}

	var buf bytes.Buffer
	newPlainLogger(&buf, slog.LevelInfo).Error("failed")
	assert.NotContains(t, buf.String(), "\033[")
}

func TestTextHandler_LevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		level     slog.Level
		log       func(*slog.Logger)
		shouldLog bool
	}{
		{"info logs info", slog.LevelInfo, func(l *slog.Logger) { l.Info("x") }, true},
		{"info filters debug", slog.LevelInfo, func(l *slog.Logger) { l.Debug("x") }, false},
		{"debug logs debug", slog.LevelDebug, func(l *slog.Logger) { l.Debug("x") }, true},
		{"error filters warn", slog.LevelError, func(l *slog.Logger) { l.Warn("x") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(newPlainLogger(&buf, tt.level))
			assert.Equal(t, tt.shouldLog, buf.Len() > 0)
		})
	}
}

func TestTextHandler_LevelVar(t *testing.T) {
	var buf bytes.Buffer
	lv := &slog.LevelVar{}
	lv.Set(slog.LevelError)
	logger := slog.New(NewTextHandler(&buf, lv, false))

	logger.Info("hidden")
	lv.Set(slog.LevelInfo)
	logger.Info("shown")
	assert.Equal(t, "shown\n", buf.String())
}

func TestTextHandler_WithAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	h := NewTextHandler(&buf, slog.LevelInfo, false)
	assert.Same(t, h, h.WithAttrs(nil))
	assert.Same(t, h, h.WithGroup(""))

	base := slog.New(h).With("endpoint", "search")
	logger := base.WithGroup("server").WithGroup("http").With("id", "abc")
	logger.Info("request", "status", 200)
	base.Info("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[server.http] request: endpoint=search id=abc status=200", lines[0])
	assert.Equal(t, "plain: endpoint=search", lines[1])
}

func TestTextHandler_GroupAttr(t *testing.T) {
	var buf bytes.Buffer
	newPlainLogger(&buf, slog.LevelInfo).Info("index",
		slog.Group("stats", "entries", 5, slog.Group("terms", "kept", 40)),
		slog.Group("", "inline", true),
		slog.Attr{})

	assert.Equal(t, "index: stats.entries=5 stats.terms.kept=40 inline=true\n", buf.String())
}

func TestTextHandler_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	logger := newPlainLogger(&buf, slog.LevelInfo)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.With("worker", i).Info("tick")
		}()
	}
	wg.Wait()

	assert.Len(t, strings.Split(strings.TrimSpace(buf.String()), "\n"), 20)
}
