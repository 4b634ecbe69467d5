package llm

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type fakeStream struct {
	ch     chan types.ConverseStreamOutput
	err    error
	closed bool
}

func newFakeStream(err error, evs ...types.ConverseStreamOutput) *fakeStream {
	ch := make(chan types.ConverseStreamOutput, len(evs))
	for _, e := range evs {
		ch <- e
	}
	close(ch)
	return &fakeStream{ch: ch, err: err}
}

func (f *fakeStream) Events() <-chan types.ConverseStreamOutput { return f.ch }

func (f *fakeStream) Close() error {
	f.closed = true
	return nil
}

func (f *fakeStream) Err() error { return f.err }

type converseResult struct {
	out *bedrockruntime.ConverseOutput
	err error
}

type fakeRuntime struct {
	mu      sync.Mutex
	results []converseResult
	calls   int
	inputs  []*bedrockruntime.ConverseInput
	stream  EventStream
}

func (f *fakeRuntime) Converse(_ context.Context, in *bedrockruntime.ConverseInput) (*bedrockruntime.ConverseOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	i := f.calls
	f.calls++
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i].out, f.results[i].err
}

func (f *fakeRuntime) ConverseStream(context.Context, *bedrockruntime.ConverseStreamInput) (EventStream, error) {
	return f.stream, nil
}

func toolOutput(stop types.StopReason, name string, input any) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		StopReason: stop,
		Output: &types.ConverseOutputMemberMessage{Value: types.Message{
			Role: types.ConversationRoleAssistant,
			Content: []types.ContentBlock{
				&types.ContentBlockMemberText{Value: "Here you go."},
				&types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
					ToolUseId: aws.String("tooluse_1"),
					Name:      aws.String(name),
					Input:     document.NewLazyDocument(input),
				}},
			},
		}},
	}
}

func textOutput(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		StopReason: types.StopReasonEndTurn,
		Output: &types.ConverseOutputMemberMessage{Value: types.Message{
			Role:    types.ConversationRoleAssistant,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: text}},
		}},
	}
}

func toolStart(id, name string) types.ConverseStreamOutput {
	return &types.ConverseStreamOutputMemberContentBlockStart{Value: types.ContentBlockStartEvent{
		ContentBlockIndex: aws.Int32(0),
		Start: &types.ContentBlockStartMemberToolUse{Value: types.ToolUseBlockStart{
			ToolUseId: aws.String(id),
			Name:      aws.String(name),
		}},
	}}
}

func toolDelta(s string) types.ConverseStreamOutput {
	return &types.ConverseStreamOutputMemberContentBlockDelta{Value: types.ContentBlockDeltaEvent{
		ContentBlockIndex: aws.Int32(0),
		Delta:             &types.ContentBlockDeltaMemberToolUse{Value: types.ToolUseBlockDelta{Input: aws.String(s)}},
	}}
}

func textDelta(s string) types.ConverseStreamOutput {
	return &types.ConverseStreamOutputMemberContentBlockDelta{Value: types.ContentBlockDeltaEvent{
		ContentBlockIndex: aws.Int32(0),
		Delta:             &types.ContentBlockDeltaMemberText{Value: s},
	}}
}

func blockStop() types.ConverseStreamOutput {
	return &types.ConverseStreamOutputMemberContentBlockStop{Value: types.ContentBlockStopEvent{ContentBlockIndex: aws.Int32(0)}}
}

func messageStart() types.ConverseStreamOutput {
	return &types.ConverseStreamOutputMemberMessageStart{Value: types.MessageStartEvent{Role: types.ConversationRoleAssistant}}
}

func messageStop(r types.StopReason) types.ConverseStreamOutput {
	return &types.ConverseStreamOutputMemberMessageStop{Value: types.MessageStopEvent{StopReason: r}}
}

func metadata() types.ConverseStreamOutput {
	return &types.ConverseStreamOutputMemberMetadata{Value: types.ConverseStreamMetadataEvent{
		Usage:   &types.TokenUsage{InputTokens: aws.Int32(10), OutputTokens: aws.Int32(20), TotalTokens: aws.Int32(30)},
		Metrics: &types.ConverseStreamMetrics{LatencyMs: aws.Int64(1200)},
	}}
}
