package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const (
	StopToolUse   = string(types.StopReasonToolUse)
	StopMaxTokens = string(types.StopReasonMaxTokens)
)

var (
	ErrNoMessage      = errors.New("converse output has no message")
	ErrNoToolUse      = errors.New("model did not call the tool")
	ErrNoValidPayload = errors.New("no valid payload")
)

// ToolResponse is the parsed result of a synchronous converse call.
type ToolResponse struct {
	StopReason string
	Tools      map[string]json.RawMessage
	Text       string
	Truncated  bool
}

// ParseToolResponse collects toolName -> input for every toolUse block when
// the model stopped to use a tool. With acceptTruncated, a max_tokens stop is
// also collected and marked Truncated.
func ParseToolResponse(out *bedrockruntime.ConverseOutput, acceptTruncated bool) (*ToolResponse, error) {
	if out == nil {
		return nil, ErrNoMessage
	}
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, ErrNoMessage
	}

	res := &ToolResponse{
		StopReason: string(out.StopReason),
		Tools:      map[string]json.RawMessage{},
	}
	collect := res.StopReason == StopToolUse || (acceptTruncated && res.StopReason == StopMaxTokens)

	var text strings.Builder
	for _, block := range msg.Value.Content {
		switch b := block.(type) {
		case *types.ContentBlockMemberText:
			text.WriteString(b.Value)
		case *types.ContentBlockMemberToolUse:
			if !collect {
				continue
			}
			raw, err := toolInput(b.Value)
			if err != nil {
				return nil, fmt.Errorf("tool %s: %w", aws.ToString(b.Value.Name), err)
			}
			res.Tools[aws.ToString(b.Value.Name)] = raw
		}
	}
	res.Text = strings.TrimSpace(text.String())
	res.Truncated = collect && res.StopReason == StopMaxTokens
	return res, nil
}

func toolInput(tu types.ToolUseBlock) (json.RawMessage, error) {
	if tu.Input == nil {
		return json.RawMessage("{}"), nil
	}
	b, err := tu.Input.MarshalSmithyDocument()
	if err != nil {
		return nil, fmt.Errorf("marshal tool input: %w", err)
	}
	return json.RawMessage(b), nil
}

// Payload is the object pushed to clients and stored: {toolName: input},
// plus stop_reason when the response was cut off.
func Payload(toolName string, input json.RawMessage, truncated bool) map[string]any {
	p := map[string]any{toolName: input}
	if truncated {
		p["stop_reason"] = StopMaxTokens
	}
	return p
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// extractFirstJSONObject finds the first balanced {...} block, ignoring
// braces inside JSON strings.
func extractFirstJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inStr, esc := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
