package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.uber.org/zap"
)

// Message is an assistant message rebuilt from stream events.
type Message struct {
	Role    string
	Content []ContentBlock
}

// ContentBlock holds either Text or ToolUse.
type ContentBlock struct {
	Text    *string
	ToolUse *ToolUse
}

type ToolUse struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// Tool returns the input of the first tool block with the given name.
func (m *Message) Tool(name string) (json.RawMessage, bool) {
	if m == nil {
		return nil, false
	}
	for _, b := range m.Content {
		if b.ToolUse != nil && b.ToolUse.Name == name {
			return b.ToolUse.Input, true
		}
	}
	return nil, false
}

// DeltaFunc receives each partial tool input as it arrives.
type DeltaFunc func(partial string) error

// AssembleStream drains es into a Message. Tool input deltas are appended
// to the open tool block and passed to onDelta. The stream is closed before
// returning.
func AssembleStream(ctx context.Context, es EventStream, onDelta DeltaFunc, log *zap.Logger) (string, *Message, error) {
	if log == nil {
		log = zap.NewNop()
	}
	defer es.Close()

	var (
		stopReason string
		msg        = &Message{}
		text       strings.Builder
		input      strings.Builder
		tool       *ToolUse
	)

	events := es.Events()
loop:
	for {
		select {
		case <-ctx.Done():
			return "", nil, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				break loop
			}
			switch e := ev.(type) {
			case *types.ConverseStreamOutputMemberMessageStart:
				msg.Role = string(e.Value.Role)

			case *types.ConverseStreamOutputMemberContentBlockStart:
				if tu, ok := e.Value.Start.(*types.ContentBlockStartMemberToolUse); ok {
					tool = &ToolUse{
						ID:   aws.ToString(tu.Value.ToolUseId),
						Name: aws.ToString(tu.Value.Name),
					}
					input.Reset()
				}

			case *types.ConverseStreamOutputMemberContentBlockDelta:
				switch d := e.Value.Delta.(type) {
				case *types.ContentBlockDeltaMemberToolUse:
					part := aws.ToString(d.Value.Input)
					input.WriteString(part)
					if onDelta != nil {
						if err := onDelta(part); err != nil {
							return "", nil, fmt.Errorf("forward delta: %w", err)
						}
					}
				case *types.ContentBlockDeltaMemberText:
					text.WriteString(d.Value)
				}

			case *types.ConverseStreamOutputMemberContentBlockStop:
				if tool != nil {
					raw := strings.TrimSpace(input.String())
					if raw == "" {
						raw = "{}"
					}
					if !json.Valid([]byte(raw)) {
						return "", nil, fmt.Errorf("tool %s: invalid input json: %s", tool.Name, truncate(raw, 200))
					}
					tool.Input = json.RawMessage(raw)
					msg.Content = append(msg.Content, ContentBlock{ToolUse: tool})
					tool = nil
					input.Reset()
				} else {
					s := text.String()
					msg.Content = append(msg.Content, ContentBlock{Text: &s})
					text.Reset()
				}

			case *types.ConverseStreamOutputMemberMessageStop:
				stopReason = string(e.Value.StopReason)

			case *types.ConverseStreamOutputMemberMetadata:
				fields := []zap.Field{}
				if u := e.Value.Usage; u != nil {
					fields = append(fields,
						zap.Int32("input_tokens", aws.ToInt32(u.InputTokens)),
						zap.Int32("output_tokens", aws.ToInt32(u.OutputTokens)),
					)
				}
				if m := e.Value.Metrics; m != nil {
					fields = append(fields, zap.Int64("latency_ms", aws.ToInt64(m.LatencyMs)))
				}
				log.Info("converse stream metadata", fields...)
			}
		}
	}

	if err := es.Err(); err != nil {
		return "", nil, fmt.Errorf("converse stream: %w", err)
	}
	return stopReason, msg, nil
}

// Stream starts a ConverseStream call and assembles it.
func Stream(ctx context.Context, rt Runtime, req Request, onDelta DeltaFunc, log *zap.Logger) (string, *Message, error) {
	es, err := rt.ConverseStream(ctx, req.ConverseStreamInput())
	if err != nil {
		return "", nil, fmt.Errorf("bedrock ConverseStream: %w", err)
	}
	return AssembleStream(ctx, es, onDelta, log)
}
