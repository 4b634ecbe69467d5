package llm

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToolResponse_ToolUse(t *testing.T) {
	out := toolOutput(types.StopReasonToolUse, "CourseOutline", map[string]any{"course_title": "ML"})

	res, err := ParseToolResponse(out, false)
	require.NoError(t, err)
	assert.Equal(t, "tool_use", res.StopReason)
	assert.False(t, res.Truncated)
	assert.Equal(t, "Here you go.", res.Text)
	require.Contains(t, res.Tools, "CourseOutline")
	assert.JSONEq(t, `{"course_title":"ML"}`, string(res.Tools["CourseOutline"]))
}

func TestParseToolResponse_MaxTokens(t *testing.T) {
	out := toolOutput(types.StopReasonMaxTokens, "CourseOutline", map[string]any{"course_title": "ML"})

	res, err := ParseToolResponse(out, false)
	require.NoError(t, err)
	assert.Empty(t, res.Tools)

	res, err = ParseToolResponse(out, true)
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Contains(t, res.Tools, "CourseOutline")
}

func TestParseToolResponse_NoMessage(t *testing.T) {
	_, err := ParseToolResponse(nil, false)
	require.ErrorIs(t, err, ErrNoMessage)

	_, err = ParseToolResponse(&bedrockruntime.ConverseOutput{}, false)
	require.ErrorIs(t, err, ErrNoMessage)
}

func TestPayload(t *testing.T) {
	p := Payload("CourseOutline", json.RawMessage(`{"a":1}`), false)
	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"CourseOutline":{"a":1}}`, string(b))

	p = Payload("CourseOutline", json.RawMessage(`{"a":1}`), true)
	b, err = json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"CourseOutline":{"a":1},"stop_reason":"max_tokens"}`, string(b))
}

func TestExtractFirstJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":{"b":"}"}}`, extractFirstJSONObject(`Sure! {"a":{"b":"}"}} trailing`))
	assert.Equal(t, "", extractFirstJSONObject("no json here"))
	assert.Equal(t, "", extractFirstJSONObject(`{"open": true`))
	assert.Equal(t, `{"q":"say \"{\""}`, extractFirstJSONObject(`x {"q":"say \"{\""} y`))
}
