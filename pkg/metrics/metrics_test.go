package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrack(t *testing.T) {
	m := New()

	m.Track("predict")()
	m.Track("predict")()
	done := m.Track("search")
	done()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("predict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("search")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.latency))
}

func TestFeedback(t *testing.T) {
	m := New()
	m.Feedback()
	m.Feedback()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.feedback))
}

func TestNilRecorder(t *testing.T) {
	var m *Recorder
	assert.NotPanics(t, func() {
		m.Track("predict")()
		m.Feedback()
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler(t *testing.T) {
	m := New()
	m.Track("info")()
	m.Feedback()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(b)
	assert.Contains(t, body, `admitguide_requests_total{endpoint="info"} 1`)
	assert.Contains(t, body, "admitguide_response_seconds_bucket")
	assert.Contains(t, body, "admitguide_feedback_total 1")
}
