// Package generation runs the outline and content SQS workers: decode the
// queued WebSocket event, gather reference text, prompt Bedrock for a tool
// call, push the result to the client and store it.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"coursegen/internal/alerts"
	"coursegen/internal/course"
	"coursegen/internal/documents"
	"coursegen/internal/jobs"
	"coursegen/internal/llm"
	"coursegen/internal/wsapi"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.uber.org/zap"
)

// JobIDAttribute is the SQS message attribute carrying the job id.
const JobIDAttribute = "JobId"

type Sender interface {
	Send(ctx context.Context, connectionID string, v any) error
}

// SenderFactory builds a Sender for a callback endpoint.
type SenderFactory func(endpoint string) Sender

type TextSource interface {
	CollectText(ctx context.Context, uris []string) (string, error)
}

type ResultStore interface {
	SaveJSON(ctx context.Context, bucket, key string, v any) error
}

type JobTracker interface {
	Claim(ctx context.Context, messageID, jobID string) (bool, error)
	Release(ctx context.Context, messageID string) error
	Finish(ctx context.Context, messageID string) error
	SetStatus(ctx context.Context, jobID string, status jobs.Status, outputKey, errMsg string) error
}

type Alerter interface {
	GenerationFailed(ctx context.Context, f alerts.Failure) error
}

type Deps struct {
	Runtime   llm.Runtime
	Documents TextSource
	Results   ResultStore
	Jobs      JobTracker
	Alerts    Alerter
	Senders   SenderFactory
}

type Options struct {
	ModelID    string
	Bucket     string
	MaxRetries int
	// Endpoint overrides the callback URL derived from the event.
	Endpoint string
}

type Worker struct {
	kind    Kind
	deps    Deps
	opt     Options
	tool    types.Tool
	prompts *course.Catalogue
	senders map[string]Sender
	log     *zap.Logger
}

func NewWorker(kind Kind, deps Deps, opt Options, log *zap.Logger) (*Worker, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if deps.Runtime == nil || deps.Documents == nil || deps.Results == nil || deps.Senders == nil {
		return nil, errors.New("generation: runtime, documents, results and senders are required")
	}
	if opt.MaxRetries < 1 {
		opt.MaxRetries = 1
	}
	tool, err := llm.ToolSpec(kind.ToolName, kind.ToolDescription, kind.Schema)
	if err != nil {
		return nil, err
	}
	prompts, err := course.Prompts()
	if err != nil {
		return nil, err
	}
	return &Worker{
		kind:    kind,
		deps:    deps,
		opt:     opt,
		tool:    tool,
		prompts: prompts,
		senders: map[string]Sender{},
		log:     log.With(zap.String("kind", kind.Name), zap.String("model_id", opt.ModelID)),
	}, nil
}

// HandleSQS processes every record and reports the ones that should be
// redelivered.
func (w *Worker) HandleSQS(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, rec := range ev.Records {
		if err := w.processRecord(ctx, rec); err != nil {
			w.log.Error("record failed",
				zap.String("message_id", rec.MessageId),
				zap.String("error_code", llm.ErrorCode(err)),
				zap.Error(err))
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}, nil
}

func jobIDOf(rec events.SQSMessage) string {
	if a, ok := rec.MessageAttributes[JobIDAttribute]; ok && a.StringValue != nil && *a.StringValue != "" {
		return *a.StringValue
	}
	return rec.MessageId
}

func (w *Worker) processRecord(ctx context.Context, rec events.SQSMessage) error {
	jobID := jobIDOf(rec)
	log := w.log.With(zap.String("message_id", rec.MessageId), zap.String("job_id", jobID))

	var wsev events.APIGatewayWebsocketProxyRequest
	if err := json.Unmarshal([]byte(rec.Body), &wsev); err != nil {
		return fmt.Errorf("unmarshal queued ws event: %w", err)
	}
	connID := wsev.RequestContext.ConnectionID
	log = log.With(zap.String("connection_id", connID))

	if w.deps.Jobs != nil {
		dup, err := w.deps.Jobs.Claim(ctx, rec.MessageId, jobID)
		if err != nil {
			return err
		}
		if dup {
			log.Info("duplicate delivery, skipping")
			return nil
		}
	}

	if err := w.run(ctx, jobID, wsev, log); err != nil {
		if w.deps.Jobs != nil {
			if rerr := w.deps.Jobs.Release(ctx, rec.MessageId); rerr != nil {
				log.Warn("release claim failed", zap.Error(rerr))
			}
		}
		return err
	}
	if w.deps.Jobs != nil {
		if err := w.deps.Jobs.Finish(ctx, rec.MessageId); err != nil {
			log.Warn("finish claim failed", zap.Error(err))
		}
	}
	return nil
}

func (w *Worker) sender(endpoint string) Sender {
	if s, ok := w.senders[endpoint]; ok {
		return s
	}
	s := w.deps.Senders(endpoint)
	w.senders[endpoint] = s
	return s
}

// run returns an error only for failures worth redelivering. Bad requests
// and exhausted retries are reported to the client and recorded.
func (w *Worker) run(ctx context.Context, jobID string, wsev events.APIGatewayWebsocketProxyRequest, log *zap.Logger) error {
	rc := wsev.RequestContext
	cl := &client{
		sender: w.sender(wsapi.Endpoint(w.opt.Endpoint, rc.DomainName, rc.Stage)),
		connID: rc.ConnectionID,
		log:    log,
	}

	w.setStatus(ctx, jobID, jobs.StatusProcessing, "", "", log)

	task, err := w.kind.Parse([]byte(wsev.Body))
	if err != nil {
		w.reject(ctx, cl, jobID, err, log)
		return nil
	}
	log = log.With(zap.String("course_title", task.CourseTitle), zap.Bool("streaming", task.Streaming))
	cl.log = log

	docText, err := w.deps.Documents.CollectText(ctx, task.URIs)
	if err != nil {
		if errors.Is(err, documents.ErrUnsupportedURI) {
			w.reject(ctx, cl, jobID, err, log)
			return nil
		}
		return fmt.Errorf("collect reference text: %w", err)
	}

	prompt, err := task.Prompt(w.prompts, docText)
	if err != nil {
		w.reject(ctx, cl, jobID, err, log)
		return nil
	}

	req := llm.Request{
		ModelID:     w.opt.ModelID,
		System:      prompt.System,
		User:        prompt.User,
		Temperature: w.kind.Temperature,
		Tools:       []types.Tool{w.tool},
	}

	payload, attempts, err := w.generate(ctx, req, task.Streaming, cl, log)
	if err != nil {
		if !errors.Is(err, llm.ErrNoValidPayload) {
			return err
		}
		w.fail(ctx, cl, jobID, task, attempts, err, log)
		return nil
	}

	cl.push(ctx, payload)

	if err := w.deps.Results.SaveJSON(ctx, w.opt.Bucket, task.OutputKey, payload); err != nil {
		return fmt.Errorf("save %s: %w", task.OutputKey, err)
	}
	w.setStatus(ctx, jobID, jobs.StatusCompleted, task.OutputKey, "", log)
	log.Info("generation completed", zap.Int("attempts", attempts), zap.String("output_key", task.OutputKey))
	return nil
}

// generate returns the {toolName: input} payload and how many model calls
// it took. A streaming run that ends without a valid tool call falls back
// to synchronous retries.
func (w *Worker) generate(ctx context.Context, req llm.Request, streaming bool, cl *client, log *zap.Logger) (map[string]any, int, error) {
	used := 0
	if streaming {
		used = 1
		stop, msg, err := llm.Stream(ctx, w.deps.Runtime, req, func(part string) error {
			cl.push(ctx, part)
			return nil
		}, log)
		switch {
		case err != nil:
			log.Warn("streaming attempt failed, falling back", zap.Error(err))
		case stop != llm.StopToolUse:
			log.Warn("streaming attempt did not stop for tool use, falling back", zap.String("stop_reason", stop))
		default:
			raw, ok := msg.Tool(w.kind.ToolName)
			if !ok {
				log.Warn("streaming attempt falling back", zap.Error(llm.ErrNoToolUse))
				break
			}
			if verr := w.kind.Validate(raw); verr != nil {
				log.Warn("streamed tool input rejected, falling back", zap.Error(verr))
				break
			}
			return llm.Payload(w.kind.ToolName, raw, false), used, nil
		}
	}

	res, err := llm.GenerateWithRetry(ctx, w.deps.Runtime, req, llm.RetryOptions{
		ToolName:        w.kind.ToolName,
		MaxAttempts:     w.opt.MaxRetries,
		AcceptTruncated: w.kind.AcceptTruncated,
	}, w.kind.Validate, log)
	if res != nil {
		used += res.Attempts
	}
	if err != nil {
		return nil, used, err
	}
	if res.Truncated {
		log.Warn("max token limit reached, result may be incomplete")
	}
	return llm.Payload(w.kind.ToolName, res.Input, res.Truncated), used, nil
}

func (w *Worker) reject(ctx context.Context, cl *client, jobID string, cause error, log *zap.Logger) {
	log.Warn("rejecting request", zap.Error(cause))
	cl.push(ctx, fmt.Sprintf("Invalid %s request: %v", w.kind.Label, cause))
	w.setStatus(ctx, jobID, jobs.StatusFailed, "", cause.Error(), log)
}

func (w *Worker) fail(ctx context.Context, cl *client, jobID string, task *Task, attempts int, cause error, log *zap.Logger) {
	log.Error("generation failed", zap.Int("attempts", attempts), zap.Error(cause))
	cl.push(ctx, w.FailureMessage())
	w.setStatus(ctx, jobID, jobs.StatusFailed, "", cause.Error(), log)

	if w.deps.Alerts == nil {
		return
	}
	if err := w.deps.Alerts.GenerationFailed(ctx, alerts.Failure{
		Kind:         w.kind.Name,
		JobID:        jobID,
		ConnectionID: cl.connID,
		CourseTitle:  task.CourseTitle,
		Attempts:     attempts,
		Reason:       cause.Error(),
	}); err != nil {
		log.Warn("failure alert not sent", zap.Error(err))
	}
}

// FailureMessage is what the client receives when no valid payload was
// produced. The count is the synchronous attempts; a streaming job makes one
// more call first, which the failure alert includes.
func (w *Worker) FailureMessage() string {
	return fmt.Sprintf("Unable to generate %s after %d attempts.", w.kind.Label, w.opt.MaxRetries)
}

func (w *Worker) setStatus(ctx context.Context, jobID string, st jobs.Status, outputKey, errMsg string, log *zap.Logger) {
	if w.deps.Jobs == nil {
		return
	}
	if err := w.deps.Jobs.SetStatus(ctx, jobID, st, outputKey, errMsg); err != nil {
		log.Warn("job status update failed", zap.String("status", string(st)), zap.Error(err))
	}
}

// client pushes frames to one connection and goes quiet once the
// connection is gone.
type client struct {
	sender Sender
	connID string
	gone   bool
	log    *zap.Logger
}

func (c *client) push(ctx context.Context, v any) {
	if c.gone || strings.TrimSpace(c.connID) == "" {
		return
	}
	if err := c.sender.Send(ctx, c.connID, v); err != nil {
		if errors.Is(err, wsapi.ErrGone) {
			c.gone = true
			c.log.Info("client disconnected, not pushing further frames")
			return
		}
		c.log.Warn("push to client failed", zap.Error(err))
	}
}
