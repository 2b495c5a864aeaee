package llm

import (
	"errors"
	"fmt"

	"coursegen/internal/course"
)

var (
	ErrUnavailable            = errors.New("provider unavailable")
	ErrGeneration             = errors.New("generation failed")
	ErrMalformedOutput        = errors.New("malformed model output")
	ErrUnsupportedContentType = course.ErrUnsupportedContentType
)

type UnavailableError struct {
	Provider string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("provider %s unavailable", e.Provider)
}

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// GenerationError is a transport, auth or backend-side failure of one attempt.
type GenerationError struct {
	Provider string
	Op       Op
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

// MalformedOutputError keeps the raw completion for diagnostics.
type MalformedOutputError struct {
	Raw string
	Err error
}

func (e *MalformedOutputError) Error() string {
	if e.Err == nil {
		return ErrMalformedOutput.Error()
	}
	return fmt.Sprintf("%s: %v", ErrMalformedOutput, e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

func (e *MalformedOutputError) Is(target error) bool { return target == ErrMalformedOutput }

type UnsupportedContentTypeError struct {
	ContentType string
}

func (e *UnsupportedContentTypeError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnsupportedContentType, e.ContentType)
}

func (e *UnsupportedContentTypeError) Is(target error) bool {
	return target == ErrUnsupportedContentType
}

// HTTPError is a non-2xx answer from a backend endpoint.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

func generationError(provider string, op Op, err error) error {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return err
	}
	var malformed *MalformedOutputError
	if errors.As(err, &malformed) {
		return err
	}
	return &GenerationError{Provider: provider, Op: op, Err: err}
}
