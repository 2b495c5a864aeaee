package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	"coursegen/internal/llm"
)

var (
	ErrAllProvidersFailed   = errors.New("all providers failed")
	ErrNoProvidersAvailable = errors.New("no providers available")
	ErrInvalidRequest       = errors.New("invalid request")
)

// LessonUnavailableText is returned by GenerateLessonContent when every
// provider failed.
const LessonUnavailableText = "Error: All AI providers failed. Please check your configuration."

type Attempt struct {
	Provider string
	Err      error
}

// AllProvidersFailedError lists every attempt of one operation in list order.
type AllProvidersFailedError struct {
	Op       llm.Op
	Attempts []Attempt
}

func (e *AllProvidersFailedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	return fmt.Sprintf("%s: %s [%s]", ErrAllProvidersFailed, e.Op, strings.Join(parts, "; "))
}

func (e *AllProvidersFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

func (e *AllProvidersFailedError) Is(target error) bool { return target == ErrAllProvidersFailed }
