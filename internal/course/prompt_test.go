package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	out, err := Render("Week {week} of {title}: {{literal}} }}", map[string]string{
		"week":  "3",
		"title": "Intro to ML",
	})
	require.NoError(t, err)
	assert.Equal(t, "Week 3 of Intro to ML: {literal} }", out)
}

func TestRender_Errors(t *testing.T) {
	_, err := Render("hello {name}", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "{name}")

	_, err = Render("hello {name", map[string]string{"name": "x"})
	require.Error(t, err)
}

func TestPrompts_Embedded(t *testing.T) {
	c, err := Prompts()
	require.NoError(t, err)
	assert.Contains(t, c.Outline.User, "{syllabus_text}")
	assert.Contains(t, c.Content.User, "{additional_context}")
	assert.Contains(t, c.QnA.Template, "$search_results$")
}

func TestParseCatalogue_Incomplete(t *testing.T) {
	_, err := ParseCatalogue([]byte("outline:\n  system: hi\n"))
	require.Error(t, err)

	_, err = ParseCatalogue([]byte("outline: ["))
	require.Error(t, err)
}

func TestOutlinePrompt_DefaultUserPrompt(t *testing.T) {
	c, err := Prompts()
	require.NoError(t, err)

	p, err := OutlinePrompt(c, &OutlineRequest{
		CourseTitle:    "Fundamentals of Machine Learning",
		CourseDuration: "2",
	}, "SYLLABUS BODY")
	require.NoError(t, err)

	assert.Contains(t, p.System, "Fundamentals of Machine Learning course")
	assert.Contains(t, p.System, "2-week course")
	assert.Contains(t, p.User, "SYLLABUS BODY")
	assert.NotContains(t, p.User, "{")
}

func TestOutlinePrompt_CustomUserPrompt(t *testing.T) {
	c, err := Prompts()
	require.NoError(t, err)

	p, err := OutlinePrompt(c, &OutlineRequest{
		UserPrompt:     "Plan {course_duration} weeks of {course_title}",
		CourseTitle:    "Databases",
		CourseDuration: "6",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "Plan 6 weeks of Databases", p.User)

	_, err = OutlinePrompt(c, &OutlineRequest{
		UserPrompt:  "Plan {weeks}",
		CourseTitle: "Databases",
	}, "")
	require.Error(t, err)
}

func TestContentPrompt(t *testing.T) {
	c, err := Prompts()
	require.NoError(t, err)

	p, err := ContentPrompt(c, &ContentRequest{
		CourseTitle:            "Databases",
		WeekNumber:             "4",
		MainLearningOutcome:    "Normalize a schema",
		SubLearningOutcomeList: []string{"1NF", " ", "2NF"},
	}, "CTX")
	require.NoError(t, err)

	assert.Contains(t, p.User, "Week 4 content")
	assert.Contains(t, p.User, "- 1NF\n- 2NF")
	assert.Contains(t, p.User, "CTX")
	assert.Contains(t, p.System, "educational content creation")
}
