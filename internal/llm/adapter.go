package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"coursegen/internal/course"
)

var errEmptyCompletion = errors.New("empty completion")

// Adapter lifts a Backend into a Provider: prompts come from the dispatcher,
// completions go through recovery and the shape check.
type Adapter struct {
	backend Backend
}

func NewAdapter(backend Backend) *Adapter {
	return &Adapter{backend: backend}
}

func (a *Adapter) Name() string { return a.backend.Name() }

func (a *Adapter) IsAvailable(ctx context.Context) bool {
	return a.backend.Available(ctx)
}

func (a *Adapter) GenerateCourse(ctx context.Context, chunks []string, instruction string) (*course.Course, error) {
	text, err := a.complete(ctx, CoursePrompt(chunks, instruction))
	if err != nil {
		return nil, err
	}
	frag, err := decodeFragment(course.TypeCourse, text)
	if err != nil {
		return nil, err
	}
	return frag.(*course.Course), nil
}

func (a *Adapter) GenerateLessonContent(ctx context.Context, title, summary string, contextChunks []string) (string, error) {
	text, err := a.complete(ctx, LessonPrompt(title, summary, contextChunks))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (a *Adapter) ModifyContent(ctx context.Context, ct course.ContentType, original json.RawMessage, instruction string) (course.Fragment, error) {
	prompt, err := MutationPrompt(ct, original, instruction)
	if err != nil {
		var unsupported *UnsupportedContentTypeError
		if errors.As(err, &unsupported) {
			return nil, err
		}
		return nil, generationError(a.Name(), OpModifyContent, err)
	}
	text, err := a.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return decodeFragment(ct, text)
}

func (a *Adapter) complete(ctx context.Context, p Prompt) (string, error) {
	text, err := a.backend.Complete(ctx, p)
	if err != nil {
		return "", generationError(a.Name(), p.Op, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", &GenerationError{Provider: a.Name(), Op: p.Op, Err: errEmptyCompletion}
	}
	return text, nil
}
