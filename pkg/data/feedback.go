package data

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// fixed width so text ordering matches time ordering
	timestampLayout = "2006-01-02T15:04:05.000000000Z"

	feedbackLimitDefault = 100

	insertFeedbackSQL = `INSERT INTO feedback (id, endpoint, message, created_at)
		VALUES (?, ?, ?, ?)
	`

	selectFeedbackSQL = `SELECT id, endpoint, message, created_at
		FROM feedback
		ORDER BY created_at DESC, id
		LIMIT ?
	`

	deleteFeedbackSQL = `DELETE FROM feedback`
)

// Feedback is a free-text comment left by a user of an endpoint.
type Feedback struct {
	ID        string    `json:"id" yaml:"id"`
	Endpoint  string    `json:"endpoint" yaml:"endpoint"`
	Message   string    `json:"message" yaml:"message"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// SaveFeedback inserts one feedback record.
func SaveFeedback(ctx context.Context, db *DB, fb *Feedback) error {
	if db == nil || db.DB == nil {
		return errDBNotInitialized
	}
	if fb == nil || fb.ID == "" || fb.Message == "" {
		return errors.New("feedback id and message are required")
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now()
	}

	if _, err := db.ExecContext(ctx, db.rebind(insertFeedbackSQL),
		fb.ID, fb.Endpoint, fb.Message, fb.CreatedAt.UTC().Format(timestampLayout),
	); err != nil {
		return fmt.Errorf("error inserting feedback %s: %w", fb.ID, err)
	}
	return nil
}

// ListFeedback returns up to limit records, newest first.
func ListFeedback(ctx context.Context, db *DB, limit int) ([]*Feedback, error) {
	if db == nil || db.DB == nil {
		return nil, errDBNotInitialized
	}
	if limit <= 0 {
		limit = feedbackLimitDefault
	}

	rows, err := db.QueryContext(ctx, db.rebind(selectFeedbackSQL), limit)
	if err != nil {
		return nil, fmt.Errorf("error querying feedback: %w", err)
	}
	defer rows.Close()

	list := make([]*Feedback, 0)
	for rows.Next() {
		fb := &Feedback{}
		var created string
		if err := rows.Scan(&fb.ID, &fb.Endpoint, &fb.Message, &created); err != nil {
			return nil, fmt.Errorf("error scanning feedback row: %w", err)
		}
		if fb.CreatedAt, err = time.Parse(timestampLayout, created); err != nil {
			return nil, fmt.Errorf("error parsing feedback time %q: %w", created, err)
		}
		list = append(list, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback rows: %w", err)
	}

	return list, nil
}

// DeleteFeedback removes all records and returns how many were deleted.
func DeleteFeedback(ctx context.Context, db *DB) (int64, error) {
	if db == nil || db.DB == nil {
		return 0, errDBNotInitialized
	}
	res, err := db.ExecContext(ctx, deleteFeedbackSQL)
	if err != nil {
		return 0, fmt.Errorf("error deleting feedback: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error counting deleted feedback: %w", err)
	}
	return n, nil
}
