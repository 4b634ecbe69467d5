package generation

import (
	"encoding/json"
	"fmt"

	"coursegen/internal/course"
	"coursegen/internal/llm"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// Task is one decoded request, ready to be prompted.
type Task struct {
	CourseTitle string
	URIs        []string
	Streaming   bool
	OutputKey   string
	Prompt      func(c *course.Catalogue, docText string) (course.Prompt, error)
}

// Kind describes one generation workload: which tool the model fills in,
// how the queued body is decoded and how the result is checked.
type Kind struct {
	Name            string
	Label           string
	ToolName        string
	ToolDescription string
	Schema          any
	Temperature     *float32
	AcceptTruncated bool
	Parse           func(body []byte) (*Task, error)
	Validate        llm.DecodeFunc
}

// Outline generates a course outline. Truncated responses are accepted and
// flagged with stop_reason.
func Outline() Kind {
	return Kind{
		Name:            "outline",
		Label:           "course outline",
		ToolName:        course.OutlineToolName,
		ToolDescription: "Represents the entire course outline including the course title, duration, and weekly breakdown.",
		Schema:          &course.CourseOutline{},
		Temperature:     aws.Float32(0.5),
		AcceptTruncated: true,
		Parse:           parseOutline,
		Validate: func(raw json.RawMessage) error {
			var o course.CourseOutline
			return llm.DecodeInto(&o)(raw)
		},
	}
}

// Content generates one week of course content with the model's default
// inference settings.
func Content() Kind {
	return Kind{
		Name:            "content",
		Label:           "course content",
		ToolName:        course.ContentToolName,
		ToolDescription: "Represents all content for a specific week in the course, including the main learning outcome, reading materials, and sub-learning outcomes with supporting materials.",
		Schema:          &course.CourseContent{},
		Parse:           parseContent,
		Validate: func(raw json.RawMessage) error {
			var c course.CourseContent
			return llm.DecodeInto(&c)(raw)
		},
	}
}

func parseOutline(body []byte) (*Task, error) {
	var r course.OutlineRequest
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decode outline request: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &Task{
		CourseTitle: r.CourseTitle,
		URIs:        r.S3InputURIList,
		Streaming:   bool(r.IsStreaming),
		OutputKey:   course.OutlineKey(r.CourseTitle),
		Prompt: func(c *course.Catalogue, docText string) (course.Prompt, error) {
			return course.OutlinePrompt(c, &r, docText)
		},
	}, nil
}

func parseContent(body []byte) (*Task, error) {
	var r course.ContentRequest
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decode content request: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &Task{
		CourseTitle: r.CourseTitle,
		URIs:        r.S3InputURIList,
		Streaming:   bool(r.IsStreaming),
		OutputKey:   course.ContentKey(r.CourseTitle, r.WeekNumber, r.MainLearningOutcome),
		Prompt: func(c *course.Catalogue, docText string) (course.Prompt, error) {
			return course.ContentPrompt(c, &r, docText)
		},
	}, nil
}
