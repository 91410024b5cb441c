package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	FormatText = "text"
	FormatJSON = "json"

	noColorEnvVar = "NO_COLOR"
)

// ParseLevel maps debug, info, warn (or warning) and error onto slog
// levels. Empty input is info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// ParseFormat normalizes the output format name. Empty input is text.
func ParseFormat(format string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown log format %q", format)
	}
}

// New returns a logger writing to w. Unknown levels fall back to info and
// unknown formats to text; config validation reports them earlier.
func New(w io.Writer, level, format string) *slog.Logger {
	lev, _ := ParseLevel(level)
	if f, _ := ParseFormat(format); f == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lev}))
	}
	return slog.New(NewTextHandler(w, lev, os.Getenv(noColorEnvVar) == ""))
}

// SetDefault installs a stderr logger as the slog default.
func SetDefault(level, format string) {
	slog.SetDefault(New(os.Stderr, level, format))
}
