package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"coursegen/internal/course"
)

const placeholderMark = "[placeholder]"

// Placeholder produces marked stand-in content without any backend. It is a
// last-resort entry and is only available when enabled.
type Placeholder struct {
	enabled bool
}

func NewPlaceholder(enabled bool) *Placeholder {
	return &Placeholder{enabled: enabled}
}

func (p *Placeholder) Name() string { return "placeholder" }

func (p *Placeholder) IsAvailable(_ context.Context) bool { return p.enabled }

func (p *Placeholder) GenerateCourse(_ context.Context, chunks []string, _ string) (*course.Course, error) {
	lessons := make([]course.Lesson, 0, 1)
	lessons = append(lessons, course.Lesson{
		Title:   "Overview",
		Summary: placeholderMark + " No generation backend produced this lesson.",
		Detail:  fmt.Sprintf("%s This course was built from %d source chunks without a generation backend.", placeholderMark, len(chunks)),
	})
	return &course.Course{
		Title:   placeholderMark + " Generated Course",
		Modules: []course.Module{{Title: placeholderMark + " Module 1", Lessons: lessons}},
	}, nil
}

func (p *Placeholder) GenerateLessonContent(_ context.Context, title, summary string, _ []string) (string, error) {
	return fmt.Sprintf("%s Lesson content for %q is not available. Summary: %s", placeholderMark, title, summary), nil
}

// ModifyContent echoes the original fragment with its title marked, so the
// result keeps the requested shape.
func (p *Placeholder) ModifyContent(_ context.Context, ct course.ContentType, original json.RawMessage, _ string) (course.Fragment, error) {
	if _, err := Dispatch(ct); err != nil {
		return nil, err
	}
	frag, err := course.DecodeFragment(ct, original)
	if err != nil {
		return nil, &GenerationError{Provider: p.Name(), Op: OpModifyContent, Err: err}
	}
	switch f := frag.(type) {
	case *course.Course:
		f.Title = mark(f.Title)
	case *course.Module:
		f.Title = mark(f.Title)
	case *course.Lesson:
		f.Title = mark(f.Title)
	case *course.Slide:
		f.Title = mark(f.Title)
	}
	if err := frag.Validate(); err != nil {
		return nil, &MalformedOutputError{Raw: string(original), Err: err}
	}
	return frag, nil
}

func mark(title string) string {
	return placeholderMark + " " + title
}
