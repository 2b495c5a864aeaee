package course

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCourse() *Course {
	return &Course{
		Title: "Go Basics",
		Modules: []Module{
			{Title: "Intro", Lessons: []Lesson{
				{Title: "Why Go", Summary: "Short.", Detail: "Long text."},
				{Title: "Tooling", Summary: "Short.", Detail: "More text."},
			}},
			{Title: "Types", Lessons: []Lesson{
				{Title: "Structs", Summary: "Short.", Detail: "Struct text."},
			}},
		},
	}
}

func TestParseContentType(t *testing.T) {
	for _, raw := range []string{"course", "module", "lesson", "slide", " Slide "} {
		_, err := ParseContentType(raw)
		require.NoError(t, err, raw)
	}
	_, err := ParseContentType("quiz")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedContentType))
}

func TestCourseJSONUsesCourseKey(t *testing.T) {
	data, err := json.Marshal(&Course{Title: "X", Modules: []Module{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"course":"X","modules":[]}`, string(data))
}

func TestValidate(t *testing.T) {
	c := sampleCourse()
	require.NoError(t, c.Validate())
	assert.Equal(t, 3, c.LessonCount())

	c.Modules[1].Lessons[0].Detail = "  "
	err := c.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "modules[1].lessons[0].detail", verr.Path)

	c = sampleCourse()
	c.Modules[0].Title = ""
	require.Error(t, c.Validate())

	require.Error(t, (&Course{}).Validate())
	require.Error(t, (&Slide{Title: "T"}).Validate())
	require.NoError(t, (&Slide{Title: "T", Bullets: []string{"a"}}).Validate())
}

func TestDecodeFragment(t *testing.T) {
	frag, err := DecodeFragment(TypeSlide, []byte(`{"title":"T","bullets":["a","b"]}`))
	require.NoError(t, err)
	slide, ok := frag.(*Slide)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, slide.Bullets)
	assert.Equal(t, TypeSlide, frag.ContentType())

	frag, err = DecodeFragment(TypeModule, []byte(`{"title":"M","lessons":[]}`))
	require.NoError(t, err)
	assert.Equal(t, TypeModule, frag.ContentType())

	_, err = DecodeFragment("quiz", []byte(`{}`))
	assert.True(t, errors.Is(err, ErrUnsupportedContentType))

	_, err = DecodeFragment(TypeLesson, []byte(`not json`))
	require.Error(t, err)
}

func TestNewGenerationRequestCopiesChunks(t *testing.T) {
	chunks := []string{"a", "b"}
	req := NewGenerationRequest(chunks, "make a course")
	chunks[0] = "changed"
	assert.Equal(t, "a", req.Chunks[0])
}
