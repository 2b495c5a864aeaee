package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiWithoutKey(t *testing.T) {
	g := NewGemini(context.Background(), GeminiConfig{})
	assert.False(t, g.Available(context.Background()))
	assert.ErrorIs(t, g.InitErr(), errNoAPIKey)
	assert.Equal(t, "gemini-2.0-flash", g.Model())

	_, err := NewAdapter(g).GenerateLessonContent(context.Background(), "T", "S", nil)
	assert.ErrorIs(t, err, ErrGeneration)
}

type geminiCapture struct {
	mu   sync.Mutex
	path string
	key  string
	body map[string]any
}

func geminiCandidate(text, finish string) map[string]any {
	return map[string]any{
		"content": map[string]any{
			"role":  "model",
			"parts": []any{map[string]any{"text": text}},
		},
		"finishReason": finish,
	}
}

// geminiServer answers generateContent calls with candidates.
func geminiServer(t *testing.T, candidates []any, seen *geminiCapture) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if seen != nil {
			seen.mu.Lock()
			seen.path = r.URL.Path
			seen.key = r.Header.Get("x-goog-api-key")
			seen.body = body
			seen.mu.Unlock()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": candidates})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestGemini(t *testing.T, srv *httptest.Server) *Gemini {
	t.Helper()
	g := NewGemini(context.Background(), GeminiConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "gemini-test"})
	require.NoError(t, g.InitErr())
	require.True(t, g.Available(context.Background()))
	return g
}

func TestGeminiGenerateCourse(t *testing.T) {
	var seen geminiCapture
	srv := geminiServer(t, []any{geminiCandidate(courseReply, "STOP")}, &seen)
	g := newTestGemini(t, srv)

	doc, err := NewAdapter(g).GenerateCourse(context.Background(), []string{"text"}, "")
	require.NoError(t, err)
	assert.Equal(t, "Go", doc.Title)
	require.Len(t, doc.Modules, 1)

	seen.mu.Lock()
	defer seen.mu.Unlock()
	assert.True(t, strings.HasSuffix(seen.path, "/models/gemini-test:generateContent"), seen.path)
	assert.Equal(t, "test-key", seen.key)
	gen, ok := seen.body["generationConfig"].(map[string]any)
	require.True(t, ok, "generationConfig missing: %v", seen.body)
	assert.Equal(t, "application/json", gen["responseMimeType"])
	assert.Equal(t, float64(courseMaxTokens), gen["maxOutputTokens"])
	assert.NotNil(t, seen.body["systemInstruction"])
	assert.NotEmpty(t, seen.body["contents"])
}

func TestGeminiLessonIsPlainText(t *testing.T) {
	var seen geminiCapture
	srv := geminiServer(t, []any{geminiCandidate("Channels carry values.", "STOP")}, &seen)
	g := newTestGemini(t, srv)

	text, err := NewAdapter(g).GenerateLessonContent(context.Background(), "Channels", "basics", nil)
	require.NoError(t, err)
	assert.Equal(t, "Channels carry values.", text)

	seen.mu.Lock()
	defer seen.mu.Unlock()
	gen, _ := seen.body["generationConfig"].(map[string]any)
	assert.NotContains(t, gen, "responseMimeType")
}

func TestGeminiRejectedResponses(t *testing.T) {
	cases := []struct {
		name       string
		candidates []any
		want       string
	}{
		{"safety block", []any{geminiCandidate("", "SAFETY")}, "safety filter"},
		{"no candidates", []any{}, "no candidates"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := geminiServer(t, tc.candidates, nil)
			g := newTestGemini(t, srv)

			_, err := g.Complete(context.Background(), CoursePrompt([]string{"text"}, ""))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)

			_, err = NewAdapter(g).GenerateCourse(context.Background(), []string{"text"}, "")
			assert.ErrorIs(t, err, ErrGeneration)
		})
	}
}
