// Package llm wraps the Bedrock Converse APIs: tool schemas, request
// building, response parsing, stream assembly and retries.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
)

type BedrockClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
	ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error)
}

// EventStream is the subset of *bedrockruntime.ConverseStreamEventStream we read.
type EventStream interface {
	Events() <-chan types.ConverseStreamOutput
	Close() error
	Err() error
}

// Runtime is what the workers call. The SDK output type hides its stream
// behind an unexported reader, so streams are returned as an interface.
type Runtime interface {
	Converse(ctx context.Context, in *bedrockruntime.ConverseInput) (*bedrockruntime.ConverseOutput, error)
	ConverseStream(ctx context.Context, in *bedrockruntime.ConverseStreamInput) (EventStream, error)
}

// ErrorCode returns the service error code carried by err, such as
// ThrottlingException, or "" when err did not come from an AWS API.
func ErrorCode(err error) string {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return ae.ErrorCode()
	}
	return ""
}

type sdkRuntime struct {
	c BedrockClient
}

func NewRuntime(c BedrockClient) Runtime {
	return &sdkRuntime{c: c}
}

func (r *sdkRuntime) Converse(ctx context.Context, in *bedrockruntime.ConverseInput) (*bedrockruntime.ConverseOutput, error) {
	return r.c.Converse(ctx, in)
}

func (r *sdkRuntime) ConverseStream(ctx context.Context, in *bedrockruntime.ConverseStreamInput) (EventStream, error) {
	out, err := r.c.ConverseStream(ctx, in)
	if err != nil {
		return nil, err
	}
	es := out.GetStream()
	if es == nil {
		return nil, fmt.Errorf("converse stream: no event stream")
	}
	return es, nil
}

// Request is a single-turn converse call with tools.
type Request struct {
	ModelID     string
	System      string
	User        string
	Temperature *float32
	Tools       []types.Tool
}

func (r Request) messages() []types.Message {
	return []types.Message{{
		Role:    types.ConversationRoleUser,
		Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: r.User}},
	}}
}

func (r Request) system() []types.SystemContentBlock {
	if r.System == "" {
		return nil
	}
	return []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: r.System}}
}

func (r Request) inference() *types.InferenceConfiguration {
	if r.Temperature == nil {
		return nil
	}
	return &types.InferenceConfiguration{Temperature: r.Temperature}
}

func (r Request) toolConfig() *types.ToolConfiguration {
	if len(r.Tools) == 0 {
		return nil
	}
	return &types.ToolConfiguration{Tools: r.Tools}
}

func (r Request) ConverseInput() *bedrockruntime.ConverseInput {
	return &bedrockruntime.ConverseInput{
		ModelId:         aws.String(r.ModelID),
		Messages:        r.messages(),
		System:          r.system(),
		InferenceConfig: r.inference(),
		ToolConfig:      r.toolConfig(),
	}
}

func (r Request) ConverseStreamInput() *bedrockruntime.ConverseStreamInput {
	return &bedrockruntime.ConverseStreamInput{
		ModelId:         aws.String(r.ModelID),
		Messages:        r.messages(),
		System:          r.system(),
		InferenceConfig: r.inference(),
		ToolConfig:      r.toolConfig(),
	}
}
