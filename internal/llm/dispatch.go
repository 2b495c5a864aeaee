package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"coursegen/internal/course"
)

const (
	courseMaxTokens   = 4000
	lessonMaxTokens   = 2000
	mutationMaxTokens = 3000
)

// Instruction is the per-content-type mutation template.
type Instruction struct {
	ContentType course.ContentType
	System      string
	Example     string
}

var instructions = map[course.ContentType]Instruction{
	course.TypeCourse: {
		ContentType: course.TypeCourse,
		System: "You are an expert instructional designer. Modify the complete course structure according to the trainer's request. " +
			"Keep every module and lesson that the request does not touch. Return only valid JSON in this exact format:",
		Example: `{
  "course": "Course Title",
  "modules": [
    {
      "title": "Module Title",
      "lessons": [
        {"title": "Lesson Title", "summary": "Brief summary", "detail": "Detailed content"}
      ]
    }
  ]
}`,
	},
	course.TypeModule: {
		ContentType: course.TypeModule,
		System:      "You are an expert instructional designer. Modify the module according to the trainer's request. Return only valid JSON in this exact format:",
		Example: `{
  "title": "Module Title",
  "lessons": [
    {"title": "Lesson Title", "summary": "Brief summary", "detail": "Detailed content"}
  ]
}`,
	},
	course.TypeLesson: {
		ContentType: course.TypeLesson,
		System:      "You are an expert instructional designer. Modify the lesson according to the trainer's request. Return only valid JSON in this exact format:",
		Example: `{
  "title": "Lesson Title",
  "summary": "Brief summary",
  "detail": "Detailed content"
}`,
	},
	course.TypeSlide: {
		ContentType: course.TypeSlide,
		System:      "You are an expert presentation designer. Modify the slide according to the trainer's request. Return only valid JSON in this exact format:",
		Example: `{
  "title": "Slide Title",
  "bullets": ["First point", "Second point"]
}`,
	},
}

// Dispatch resolves the mutation template for ct.
func Dispatch(ct course.ContentType) (Instruction, error) {
	ins, ok := instructions[ct]
	if !ok {
		return Instruction{}, &UnsupportedContentTypeError{ContentType: string(ct)}
	}
	return ins, nil
}

const courseSystem = `You are an expert instructional designer. Create a structured course from the provided content.
The course must be organised into modules, each with lessons. Every lesson has a title, a brief summary and detailed content.
Respond with valid JSON only, in this exact format:
{
  "course": "Course Title",
  "modules": [
    {
      "title": "Module Title",
      "lessons": [
        {"title": "Lesson Title", "summary": "Brief summary", "detail": "Detailed content"}
      ]
    }
  ]
}`

const lessonSystem = `You are an expert educator. Write comprehensive, well-structured lesson content for trainers.
Use the provided source material where it is relevant. Include explanations, examples and key takeaways.`

// CoursePrompt builds the prompt for a full course generation.
func CoursePrompt(chunks []string, instruction string) Prompt {
	var b strings.Builder
	if strings.TrimSpace(instruction) != "" {
		b.WriteString(instruction)
		b.WriteString("\n\n")
	}
	b.WriteString("Here is the content:\n")
	b.WriteString(strings.Join(chunks, "\n\n"))
	b.WriteString("\n\nRemember to respond with valid JSON only.")
	return Prompt{
		Op:        OpGenerateCourse,
		System:    courseSystem,
		User:      b.String(),
		MaxTokens: courseMaxTokens,
		JSON:      true,
	}
}

// LessonPrompt builds the prompt for free-text lesson material.
func LessonPrompt(title, summary string, contextChunks []string) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Lesson title: %s\nLesson summary: %s\n", title, summary)
	if len(contextChunks) > 0 {
		b.WriteString("\nSource material:\n")
		for i, chunk := range contextChunks {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, chunk)
		}
	}
	b.WriteString("\nWrite the full lesson content.")
	return Prompt{
		Op:        OpGenerateLesson,
		System:    lessonSystem,
		User:      b.String(),
		MaxTokens: lessonMaxTokens,
	}
}

// MutationPrompt builds the prompt that rewrites original under instruction.
func MutationPrompt(ct course.ContentType, original json.RawMessage, instruction string) (Prompt, error) {
	ins, err := Dispatch(ct)
	if err != nil {
		return Prompt{}, err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, original, "", "  "); err != nil {
		return Prompt{}, fmt.Errorf("original %s content: %w", ct, err)
	}
	user := fmt.Sprintf("Original %s content:\n%s\n\nTrainer's modification request:\n%s\n\n"+
		"Modify the %s content according to the trainer's request. Return only the modified JSON structure.",
		ct, pretty.String(), instruction, ct)
	return Prompt{
		Op:        OpModifyContent,
		System:    ins.System + "\n" + ins.Example,
		User:      user,
		MaxTokens: mutationMaxTokens,
		JSON:      true,
	}, nil
}
