package course

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Path, e.Reason)
}

func (c *Course) Validate() error {
	if blank(c.Title) {
		return &ValidationError{Path: "course", Reason: "title is empty"}
	}
	for i := range c.Modules {
		if err := c.Modules[i].validate(fmt.Sprintf("modules[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) Validate() error {
	return m.validate("module")
}

func (m *Module) validate(path string) error {
	if blank(m.Title) {
		return &ValidationError{Path: path + ".title", Reason: "title is empty"}
	}
	for i := range m.Lessons {
		if err := m.Lessons[i].validate(fmt.Sprintf("%s.lessons[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func (l *Lesson) Validate() error {
	return l.validate("lesson")
}

func (l *Lesson) validate(path string) error {
	if blank(l.Title) {
		return &ValidationError{Path: path + ".title", Reason: "title is empty"}
	}
	if blank(l.Detail) {
		return &ValidationError{Path: path + ".detail", Reason: "detail is empty"}
	}
	return nil
}

func (s *Slide) Validate() error {
	if blank(s.Title) {
		return &ValidationError{Path: "slide.title", Reason: "title is empty"}
	}
	if len(s.Bullets) == 0 {
		return &ValidationError{Path: "slide.bullets", Reason: "no bullets"}
	}
	return nil
}

// LessonCount is the number of lessons across all modules.
func (c *Course) LessonCount() int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.Lessons)
	}
	return n
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
