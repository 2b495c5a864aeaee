package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAttempt(t *testing.T) {
	m := New()
	m.ObserveAttempt("groq", "generate_course", OutcomeError, time.Second)
	m.ObserveAttempt("deepseek", "generate_course", OutcomeSuccess, 2*time.Second)
	m.ObserveAttempt("ollama", "generate_course", OutcomeUnavailable, 0)
	m.ObserveFallback("generate_course")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("groq", "generate_course", OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallbacks.WithLabelValues("generate_course")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.latency))
}

func TestHandlerServesMetrics(t *testing.T) {
	m := New()
	m.ObserveFallback("modify_content")
	m.ObserveRequest("/upload", http.StatusOK)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `coursegen_fallbacks_total{op="modify_content"} 1`))
	assert.Contains(t, body, "coursegen_http_requests_total")
}

func TestNopRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.ObserveAttempt("x", "y", OutcomeSuccess, time.Millisecond)
	r.ObserveFallback("y")
}
