// Package llm defines the capability contract every generative-text backend
// satisfies and the adapters for the supported services.
package llm

import (
	"context"
	"encoding/json"

	"coursegen/internal/course"
)

type Op string

const (
	OpGenerateCourse Op = "generate_course"
	OpGenerateLesson Op = "generate_lesson"
	OpModifyContent  Op = "modify_content"
)

// Provider is the operation surface the orchestrator drives.
type Provider interface {
	Name() string
	// IsAvailable only reads configuration or performs a short probe.
	IsAvailable(ctx context.Context) bool
	GenerateCourse(ctx context.Context, chunks []string, instruction string) (*course.Course, error)
	GenerateLessonContent(ctx context.Context, title, summary string, contextChunks []string) (string, error)
	ModifyContent(ctx context.Context, ct course.ContentType, original json.RawMessage, instruction string) (course.Fragment, error)
}

// Backend is the transport seam of one service: it turns a prompt into raw
// completion text.
type Backend interface {
	Name() string
	Available(ctx context.Context) bool
	Complete(ctx context.Context, p Prompt) (string, error)
}

type Prompt struct {
	Op        Op
	System    string
	User      string
	MaxTokens int
	// JSON asks the backend for its native JSON output mode, if it has one.
	JSON bool
}
