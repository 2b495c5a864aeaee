package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursegen/internal/course"
)

type scriptedBackend struct {
	text    string
	err     error
	prompts []Prompt
}

func (b *scriptedBackend) Name() string                   { return "scripted" }
func (b *scriptedBackend) Available(context.Context) bool { return true }

func (b *scriptedBackend) Complete(_ context.Context, p Prompt) (string, error) {
	b.prompts = append(b.prompts, p)
	return b.text, b.err
}

const courseReply = "Sure! ```json\n" + `{"course":"Go","modules":[{"title":"M","lessons":[{"title":"L","summary":"S","detail":"D"}]}]}` + "\n```"

func TestAdapterGenerateCourse(t *testing.T) {
	backend := &scriptedBackend{text: courseReply}
	a := NewAdapter(backend)

	doc, err := a.GenerateCourse(context.Background(), []string{"text"}, "make it short")
	require.NoError(t, err)
	assert.Equal(t, "Go", doc.Title)
	assert.Equal(t, 1, doc.LessonCount())
	require.Len(t, backend.prompts, 1)
	assert.Equal(t, OpGenerateCourse, backend.prompts[0].Op)
}

func TestAdapterWrapsBackendErrors(t *testing.T) {
	backend := &scriptedBackend{err: &HTTPError{StatusCode: 401, Body: "bad key"}}
	a := NewAdapter(backend)

	_, err := a.GenerateCourse(context.Background(), nil, "")
	require.True(t, errors.Is(err, ErrGeneration))
	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, "scripted", genErr.Provider)
	assert.Equal(t, OpGenerateCourse, genErr.Op)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 401, httpErr.StatusCode)
}

func TestAdapterMalformedCourse(t *testing.T) {
	a := NewAdapter(&scriptedBackend{text: "I cannot help with that."})
	_, err := a.GenerateCourse(context.Background(), nil, "")
	assert.True(t, errors.Is(err, ErrMalformedOutput))
	assert.False(t, errors.Is(err, ErrGeneration))
}

func TestAdapterEmptyCompletion(t *testing.T) {
	a := NewAdapter(&scriptedBackend{text: "  "})
	_, err := a.GenerateLessonContent(context.Background(), "T", "S", nil)
	assert.True(t, errors.Is(err, ErrGeneration))
}

func TestAdapterLessonContent(t *testing.T) {
	a := NewAdapter(&scriptedBackend{text: "\nLesson body.\n"})
	text, err := a.GenerateLessonContent(context.Background(), "T", "S", []string{"ctx"})
	require.NoError(t, err)
	assert.Equal(t, "Lesson body.", text)
}

func TestAdapterModifySlide(t *testing.T) {
	backend := &scriptedBackend{text: `{"title":"New","bullets":["x","y"]}`}
	a := NewAdapter(backend)

	frag, err := a.ModifyContent(context.Background(), course.TypeSlide, json.RawMessage(`{"title":"Old","bullets":["x"]}`), "add y")
	require.NoError(t, err)
	slide, ok := frag.(*course.Slide)
	require.True(t, ok)
	assert.Equal(t, "New", slide.Title)
	assert.Equal(t, []string{"x", "y"}, slide.Bullets)
}

func TestAdapterModifyUnknownTypeSkipsBackend(t *testing.T) {
	backend := &scriptedBackend{text: "{}"}
	a := NewAdapter(backend)

	_, err := a.ModifyContent(context.Background(), "quiz", json.RawMessage(`{}`), "x")
	assert.True(t, errors.Is(err, ErrUnsupportedContentType))
	assert.Empty(t, backend.prompts)
}

func TestAdapterModifyWrongShape(t *testing.T) {
	a := NewAdapter(&scriptedBackend{text: `{"course":"X","modules":[]}`})
	_, err := a.ModifyContent(context.Background(), course.TypeSlide, json.RawMessage(`{"title":"Old","bullets":["x"]}`), "x")
	assert.True(t, errors.Is(err, ErrMalformedOutput))
}
