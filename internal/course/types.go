// Package course holds the structured outputs the model is asked to produce,
// the job requests that ask for them, and the prompts that drive them.
package course

import (
	"errors"
	"fmt"
	"strings"
)

// Tool names the model calls. They double as the top-level keys of the
// payload pushed to clients.
const (
	OutlineToolName = "CourseOutline"
	ContentToolName = "CourseContent"
)

// CourseOutline represents the entire course outline including the course
// title, duration, and weekly breakdown.
type CourseOutline struct {
	CourseTitle    string          `json:"course_title" jsonschema:"description=Title of the course."`
	CourseDuration string          `json:"course_duration" jsonschema:"description=Duration of the course in weeks."`
	WeeklyOutline  []WeeklyOutline `json:"weekly_outline" jsonschema:"description=List of weekly outlines including learning outcomes."`
}

// WeeklyOutline is the outline for a specific week.
type WeeklyOutline struct {
	Week         int           `json:"week" jsonschema:"description=Week number."`
	MainOutcomes []MainOutcome `json:"main_outcomes" jsonschema:"description=A list of main learning outcomes for the week."`
}

// MainOutcome is a main learning outcome with its supporting sub-outcomes.
type MainOutcome struct {
	Outcome     string   `json:"outcome" jsonschema:"description=A main learning outcome."`
	SubOutcomes []string `json:"sub_outcomes" jsonschema:"description=A list of supporting sub-learning outcomes for the main outcome."`
}

func (o *CourseOutline) Validate() error {
	if strings.TrimSpace(o.CourseTitle) == "" {
		return errors.New("course_title is empty")
	}
	if len(o.WeeklyOutline) == 0 {
		return errors.New("weekly_outline is empty")
	}
	for i, w := range o.WeeklyOutline {
		if len(w.MainOutcomes) == 0 {
			return fmt.Errorf("weekly_outline[%d] has no main_outcomes", i)
		}
		for j, m := range w.MainOutcomes {
			if strings.TrimSpace(m.Outcome) == "" {
				return fmt.Errorf("weekly_outline[%d].main_outcomes[%d].outcome is empty", i, j)
			}
		}
	}
	return nil
}

// CourseContent is all content for one week: the main learning outcome,
// reading material, and per-sub-outcome video scripts and questions.
type CourseContent struct {
	WeekNumber                 int                         `json:"week_number" jsonschema:"description=The specific week number in the course."`
	MainLearningOutcome        string                      `json:"main_learning_outcome" jsonschema:"description=The main learning outcome for this week representing the core learning objective."`
	ReadingMaterial            ReadingMaterial             `json:"reading_material" jsonschema:"description=A detailed reading material providing comprehensive coverage of the main learning outcome."`
	SubLearningOutcomesContent []SubLearningOutcomeContent `json:"sub_learning_outcomes_content" jsonschema:"description=A list of sub-learning outcomes and their associated content including video scripts and questions."`
}

type ReadingMaterial struct {
	Title   string `json:"title" jsonschema:"description=Title of the reading material related to the main learning outcome."`
	Content string `json:"content" jsonschema:"description=Detailed reading material content at least one page long providing in-depth information on the main learning outcome."`
}

type SubLearningOutcomeContent struct {
	SubLearningOutcome     string                 `json:"sub_learning_outcome" jsonschema:"description=The sub-learning outcome representing a specific objective that supports the main learning outcome."`
	VideoScript            VideoScript            `json:"video_script" jsonschema:"description=A 3-minute video script explaining the sub-learning outcome."`
	MultipleChoiceQuestion MultipleChoiceQuestion `json:"multiple_choice_question" jsonschema:"description=A multiple-choice question testing the sub-learning outcome."`
}

type VideoScript struct {
	Script string `json:"script" jsonschema:"description=A video script approximately 3 minutes long covering key concepts of the sub-learning outcome."`
}

type MultipleChoiceQuestion struct {
	Question      string   `json:"question" jsonschema:"description=The multiple-choice question for the sub-learning outcome."`
	Options       []string `json:"options" jsonschema:"description=A list of answer options for the question."`
	CorrectAnswer string   `json:"correct_answer" jsonschema:"description=The correct answer for the multiple-choice question."`
}

func (c *CourseContent) Validate() error {
	if strings.TrimSpace(c.MainLearningOutcome) == "" {
		return errors.New("main_learning_outcome is empty")
	}
	if strings.TrimSpace(c.ReadingMaterial.Content) == "" {
		return errors.New("reading_material.content is empty")
	}
	if len(c.SubLearningOutcomesContent) == 0 {
		return errors.New("sub_learning_outcomes_content is empty")
	}
	for i, s := range c.SubLearningOutcomesContent {
		q := s.MultipleChoiceQuestion
		if len(q.Options) < 2 {
			return fmt.Errorf("sub_learning_outcomes_content[%d] question has fewer than 2 options", i)
		}
		if strings.TrimSpace(q.CorrectAnswer) == "" {
			return fmt.Errorf("sub_learning_outcomes_content[%d] question has no correct_answer", i)
		}
	}
	return nil
}
