package course

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Streaming is the is_streaming flag. Clients send "yes"/"no"; JSON booleans
// are accepted too.
type Streaming bool

func (s *Streaming) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = false
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*s = Streaming(t)
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "true":
			*s = true
		case "no", "false", "":
			*s = false
		default:
			return fmt.Errorf("is_streaming: unexpected value %q", t)
		}
	default:
		return fmt.Errorf("is_streaming: unexpected type %T", v)
	}
	return nil
}

func (s Streaming) MarshalJSON() ([]byte, error) {
	if s {
		return []byte(`"yes"`), nil
	}
	return []byte(`"no"`), nil
}

// Scalar holds a value clients send either as a JSON string or a number,
// such as week_number or course_duration. It keeps the literal text.
type Scalar string

func (v *Scalar) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*v = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Scalar(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*v = Scalar(n.String())
	return nil
}

func (v Scalar) String() string { return string(v) }

// OutlineRequest is the body of a courseOutline message.
type OutlineRequest struct {
	S3InputURIList []string  `json:"s3_input_uri_list"`
	UserPrompt     string    `json:"user_prompt"`
	CourseTitle    string    `json:"course_title"`
	CourseDuration Scalar    `json:"course_duration"`
	IsStreaming    Streaming `json:"is_streaming"`
}

func (r *OutlineRequest) Validate() error {
	if strings.TrimSpace(r.CourseTitle) == "" {
		return errors.New("course_title is required")
	}
	if r.CourseDuration == "" {
		return errors.New("course_duration is required")
	}
	return nil
}

// ContentRequest is the body of a courseContent message.
type ContentRequest struct {
	S3InputURIList         []string  `json:"s3_input_uri_list"`
	UserPrompt             string    `json:"user_prompt"`
	WeekNumber             Scalar    `json:"week_number"`
	CourseTitle            string    `json:"course_title"`
	MainLearningOutcome    string    `json:"main_learning_outcome"`
	SubLearningOutcomeList []string  `json:"sub_learning_outcome_list"`
	IsStreaming            Streaming `json:"is_streaming"`
}

func (r *ContentRequest) Validate() error {
	if strings.TrimSpace(r.CourseTitle) == "" {
		return errors.New("course_title is required")
	}
	if r.WeekNumber == "" {
		return errors.New("week_number is required")
	}
	if strings.TrimSpace(r.MainLearningOutcome) == "" {
		return errors.New("main_learning_outcome is required")
	}
	return nil
}

// OutlineKey is where a generated outline is stored in the output bucket.
func OutlineKey(courseTitle string) string {
	return fmt.Sprintf("course_outline/%s/course_outline.json", courseTitle)
}

// ContentKey is where generated weekly content is stored in the output bucket.
func ContentKey(courseTitle string, week Scalar, mainOutcome string) string {
	return fmt.Sprintf("course_content/%s/%s/%s/course_content.json", courseTitle, week, mainOutcome)
}
