package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

type RetryOptions struct {
	ToolName        string
	MaxAttempts     int
	AcceptTruncated bool
}

// Result is a validated tool payload.
type Result struct {
	Input      json.RawMessage
	Attempts   int
	StopReason string
	Truncated  bool
}

// DecodeFunc decodes and validates a tool input.
type DecodeFunc func(json.RawMessage) error

// GenerateWithRetry calls Converse until decode accepts the named tool's
// input or MaxAttempts is used up. An API error ends the loop at once; the
// SDK retryer already covers throttling. When the model answers in text
// instead of calling the tool, the first JSON object in the text is tried.
func GenerateWithRetry(ctx context.Context, rt Runtime, req Request, opt RetryOptions, decode DecodeFunc, log *zap.Logger) (*Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	attempts := opt.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := rt.Converse(ctx, req.ConverseInput())
		if err != nil {
			return &Result{Attempts: attempt}, fmt.Errorf("bedrock Converse attempt %d: %w", attempt, err)
		}

		resp, err := ParseToolResponse(out, opt.AcceptTruncated)
		if err != nil {
			log.Warn("unparseable converse response", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		raw, ok := resp.Tools[opt.ToolName]
		if !ok {
			obj := extractFirstJSONObject(resp.Text)
			if obj == "" {
				log.Warn("model did not call the tool",
					zap.Int("attempt", attempt),
					zap.String("stop_reason", resp.StopReason),
					zap.String("tool", opt.ToolName))
				continue
			}
			raw = json.RawMessage(obj)
		}

		if err := decode(raw); err != nil {
			log.Warn("tool input rejected",
				zap.Int("attempt", attempt),
				zap.String("tool", opt.ToolName),
				zap.Error(err),
				zap.String("raw", truncate(string(raw), 400)))
			continue
		}

		return &Result{
			Input:      raw,
			Attempts:   attempt,
			StopReason: resp.StopReason,
			Truncated:  resp.Truncated,
		}, nil
	}
	return &Result{Attempts: attempts}, fmt.Errorf("%s: %w after %d attempts", opt.ToolName, ErrNoValidPayload, attempts)
}

// DecodeInto returns a DecodeFunc that unmarshals into a fresh T, runs its
// Validate method when it has one, and stores it in dst on success.
func DecodeInto[T any](dst *T) DecodeFunc {
	return func(raw json.RawMessage) error {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		if vv, ok := any(&v).(interface{ Validate() error }); ok {
			if err := vv.Validate(); err != nil {
				return fmt.Errorf("validate: %w", err)
			}
		}
		*dst = v
		return nil
	}
}
