package llm

import (
	"testing"

	"coursegen/internal/course"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputSchema_CourseOutline(t *testing.T) {
	s, err := InputSchema(&course.CourseOutline{})
	require.NoError(t, err)

	assert.Equal(t, "object", s["type"])
	assert.NotContains(t, s, "$schema")
	assert.NotContains(t, s, "$defs")

	props, ok := s["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "course_title")
	assert.Contains(t, props, "weekly_outline")

	title := props["course_title"].(map[string]any)
	assert.Equal(t, "Title of the course.", title["description"])

	assert.ElementsMatch(t, []any{"course_title", "course_duration", "weekly_outline"}, s["required"])
}

func TestToolSpec(t *testing.T) {
	tool, err := ToolSpec(course.ContentToolName, "weekly content", &course.CourseContent{})
	require.NoError(t, err)

	spec, ok := tool.(*types.ToolMemberToolSpec)
	require.True(t, ok)
	assert.Equal(t, "CourseContent", aws.ToString(spec.Value.Name))
	assert.Equal(t, "weekly content", aws.ToString(spec.Value.Description))
	_, ok = spec.Value.InputSchema.(*types.ToolInputSchemaMemberJson)
	assert.True(t, ok)
}
