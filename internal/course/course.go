// Package course holds the structured course document produced by generation
// and the fragments that mutation requests operate on.
package course

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedContentType = errors.New("unsupported content type")

type ContentType string

const (
	TypeCourse ContentType = "course"
	TypeModule ContentType = "module"
	TypeLesson ContentType = "lesson"
	TypeSlide  ContentType = "slide"
)

func ContentTypes() []ContentType {
	return []ContentType{TypeCourse, TypeModule, TypeLesson, TypeSlide}
}

func ParseContentType(raw string) (ContentType, error) {
	ct := ContentType(strings.ToLower(strings.TrimSpace(raw)))
	switch ct {
	case TypeCourse, TypeModule, TypeLesson, TypeSlide:
		return ct, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedContentType, raw)
}

// Course is the top-level document. The title travels under the "course" key.
type Course struct {
	Title   string   `json:"course"`
	Modules []Module `json:"modules"`
}

type Module struct {
	Title   string   `json:"title"`
	Lessons []Lesson `json:"lessons"`
}

type Lesson struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Detail  string `json:"detail"`
}

type Slide struct {
	Title   string   `json:"title"`
	Bullets []string `json:"bullets"`
}

// Fragment is any document piece a mutation can target.
type Fragment interface {
	ContentType() ContentType
	Validate() error
}

func (c *Course) ContentType() ContentType { return TypeCourse }
func (m *Module) ContentType() ContentType { return TypeModule }
func (l *Lesson) ContentType() ContentType { return TypeLesson }
func (s *Slide) ContentType() ContentType  { return TypeSlide }

// DecodeFragment decodes raw JSON into the concrete shape for ct.
func DecodeFragment(ct ContentType, raw []byte) (Fragment, error) {
	var frag Fragment
	switch ct {
	case TypeCourse:
		frag = &Course{}
	case TypeModule:
		frag = &Module{}
	case TypeLesson:
		frag = &Lesson{}
	case TypeSlide:
		frag = &Slide{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, ct)
	}
	if err := json.Unmarshal(raw, frag); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ct, err)
	}
	return frag, nil
}

// GenerationRequest is the input of a full course generation.
type GenerationRequest struct {
	Chunks      []string
	Instruction string
}

func NewGenerationRequest(chunks []string, instruction string) GenerationRequest {
	cp := make([]string, len(chunks))
	copy(cp, chunks)
	return GenerationRequest{Chunks: cp, Instruction: instruction}
}

// MutationRequest asks a backend to rewrite Original under Instruction.
type MutationRequest struct {
	ContentType ContentType
	Original    json.RawMessage
	Instruction string
}
