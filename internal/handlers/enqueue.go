package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"coursegen/internal/generation"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type JobCreator interface {
	Create(ctx context.Context, jobID, kind, connectionID string) error
}

// Ack is returned to the client as soon as the request is queued.
type Ack struct {
	ConnectionID string `json:"connection_id"`
	MessageID    string `json:"message_id"`
	JobID        string `json:"job_id"`
	Status       string `json:"status"`
}

// EnqueueHandler forwards the whole WebSocket event to a worker queue.
type EnqueueHandler struct {
	sqs      SQSAPI
	queueURL string
	kind     string
	jobs     JobCreator
	newID    func() string
	log      *zap.Logger
}

func NewEnqueueHandler(q SQSAPI, queueURL, kind string, jobs JobCreator, log *zap.Logger) *EnqueueHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &EnqueueHandler{
		sqs:      q,
		queueURL: queueURL,
		kind:     kind,
		jobs:     jobs,
		newID:    uuid.NewString,
		log:      log.With(zap.String("kind", kind)),
	}
}

func (h *EnqueueHandler) Handle(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	connID := req.RequestContext.ConnectionID
	jobID := h.newID()
	log := h.log.With(zap.String("connection_id", connID), zap.String("job_id", jobID))

	body, err := json.Marshal(req)
	if err != nil {
		return jsonErr(http.StatusInternalServerError, "encode_event_failed", err), nil
	}

	if h.jobs != nil {
		if err := h.jobs.Create(ctx, jobID, h.kind, connID); err != nil {
			log.Error("create job", zap.Error(err))
			return jsonErr(http.StatusInternalServerError, "job_create_failed", err), nil
		}
	}

	out, err := h.sqs.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(h.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			generation.JobIDAttribute: {
				DataType:    aws.String("String"),
				StringValue: aws.String(jobID),
			},
		},
	})
	if err != nil {
		log.Error("send to queue", zap.Error(err))
		return jsonErr(http.StatusInternalServerError, "enqueue_failed", err), nil
	}

	ack := Ack{
		ConnectionID: connID,
		MessageID:    aws.ToString(out.MessageId),
		JobID:        jobID,
		Status:       "queued",
	}
	log.Info("request queued", zap.String("message_id", ack.MessageID))
	return jsonOK(ack), nil
}
