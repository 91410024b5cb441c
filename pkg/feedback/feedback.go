// Package feedback records free-text user feedback about endpoint results.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/mchmarny/admitguide/pkg/data"
	"github.com/mchmarny/admitguide/pkg/metrics"
)

const messageMaxLength = 4096

// Feedback is one stored comment.
type Feedback = data.Feedback

var (
	// ErrEmptyMessage is returned for blank feedback.
	ErrEmptyMessage = errors.New("feedback message is empty")
	// ErrMessageTooLong is returned when the trimmed message exceeds the
	// stored length limit.
	ErrMessageTooLong = errors.New("feedback message is too long")
)

// Logger persists feedback and counts submissions.
type Logger struct {
	db      *data.DB
	metrics *metrics.Recorder
}

// NewLogger returns a logger writing to db. The recorder may be nil.
func NewLogger(db *data.DB, m *metrics.Recorder) (*Logger, error) {
	if db == nil {
		return nil, errors.New("feedback database is required")
	}
	return &Logger{db: db, metrics: m}, nil
}

// Log validates and stores fb, returning the stored record with its ID.
func (l *Logger) Log(ctx context.Context, fb Feedback) (*Feedback, error) {
	fb.Message = strings.TrimSpace(fb.Message)
	if fb.Message == "" {
		return nil, ErrEmptyMessage
	}
	if len(fb.Message) > messageMaxLength {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrMessageTooLong, len(fb.Message), messageMaxLength)
	}
	fb.Endpoint = strings.ToLower(strings.TrimSpace(fb.Endpoint))
	fb.ID = uuid.NewString()

	if err := data.SaveFeedback(ctx, l.db, &fb); err != nil {
		return nil, fmt.Errorf("error saving feedback: %w", err)
	}

	l.metrics.Feedback()
	slog.Info("feedback received", "id", fb.ID, "endpoint", fb.Endpoint)
	return &fb, nil
}

// List returns up to limit entries, newest first.
func (l *Logger) List(ctx context.Context, limit int) ([]*Feedback, error) {
	return data.ListFeedback(ctx, l.db, limit)
}

// Reset deletes all stored feedback.
func (l *Logger) Reset(ctx context.Context) (int64, error) {
	n, err := data.DeleteFeedback(ctx, l.db)
	if err != nil {
		return 0, err
	}
	slog.Info("feedback deleted", "count", n)
	return n, nil
}
