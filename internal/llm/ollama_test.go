package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursegen/internal/course"
)

func TestOllamaAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	assert.True(t, NewOllama(srv.URL, "").Available(context.Background()))

	down := NewOllama(srv.URL+"/missing", "")
	assert.False(t, down.Available(context.Background()))
}

func TestOllamaProbeTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	o := NewOllama(srv.URL, "")
	o.ProbeTimeout = 50 * time.Millisecond
	start := time.Now()
	assert.False(t, o.Available(context.Background()))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestOllamaModify(t *testing.T) {
	var seen ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&seen)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": `{"title":"L2","summary":"S","detail":"Longer detail"}`,
			"done":     true,
		})
	}))
	defer srv.Close()

	frag, err := NewAdapter(NewOllama(srv.URL, "")).ModifyContent(context.Background(), course.TypeLesson,
		json.RawMessage(`{"title":"L","summary":"S","detail":"D"}`), "expand")
	require.NoError(t, err)
	assert.Equal(t, "L2", frag.(*course.Lesson).Title)

	assert.Equal(t, "llama3", seen.Model)
	assert.False(t, seen.Stream)
	assert.Equal(t, "json", seen.Format)
	assert.Equal(t, mutationMaxTokens, seen.Options.NumPredict)
}
