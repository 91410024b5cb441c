package feedback

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mchmarny/admitguide/pkg/data"
	"github.com/mchmarny/admitguide/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) (*Logger, *metrics.Recorder) {
	t.Helper()
	db, err := data.Open(context.Background(), filepath.Join(t.TempDir(), "feedback.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := metrics.New()
	l, err := NewLogger(db, m)
	require.NoError(t, err)
	return l, m
}

func TestLog(t *testing.T) {
	l, m := newTestLogger(t)
	ctx := context.Background()

	fb, err := l.Log(ctx, Feedback{Endpoint: " Search ", Message: "  results were off  "})
	require.NoError(t, err)
	_, err = uuid.Parse(fb.ID)
	assert.NoError(t, err)
	assert.Equal(t, "search", fb.Endpoint)
	assert.Equal(t, "results were off", fb.Message)

	list, err := l.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, fb.ID, list[0].ID)

	assertFeedbackTotal(t, m, 1)
}

func TestLog_Rejects(t *testing.T) {
	l, m := newTestLogger(t)
	ctx := context.Background()

	_, err := l.Log(ctx, Feedback{Endpoint: "predict", Message: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = l.Log(ctx, Feedback{Message: strings.Repeat("x", messageMaxLength+1)})
	assert.ErrorIs(t, err, ErrMessageTooLong)


	list, err := l.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
	assertFeedbackTotal(t, m, 0)
}

func TestLog_MaxLengthAfterTrim(t *testing.T) {
	l, m := newTestLogger(t)

	fb, err := l.Log(context.Background(), Feedback{Message: "  " + strings.Repeat("x", messageMaxLength) + "\n"})
	require.NoError(t, err)
	assert.Len(t, fb.Message, messageMaxLength)
	assertFeedbackTotal(t, m, 1)
}

func TestLog_UniqueIDs(t *testing.T) {
	l, _ := newTestLogger(t)
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		fb, err := l.Log(context.Background(), Feedback{Message: "same"})
		require.NoError(t, err)
		assert.False(t, seen[fb.ID])
		seen[fb.ID] = true
	}
}

func TestNewLogger_NilDB(t *testing.T) {
	_, err := NewLogger(nil, nil)
	assert.Error(t, err)
}

func assertFeedbackTotal(t *testing.T, m *metrics.Recorder, n int) {
	t.Helper()
	expected := fmt.Sprintf(`
# HELP admitguide_feedback_total Number of feedback submissions.
# TYPE admitguide_feedback_total counter
admitguide_feedback_total %d
`, n)
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "admitguide_feedback_total"))
}

func TestReset(t *testing.T) {
	l, _ := newTestLogger(t)
	ctx := context.Background()

	_, err := l.Log(ctx, Feedback{Endpoint: "evaluate", Message: "helpful"})
	require.NoError(t, err)

	n, err := l.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err := l.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}
