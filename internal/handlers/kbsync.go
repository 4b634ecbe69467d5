package handlers

import (
	"context"

	"coursegen/internal/kbsync"

	"github.com/aws/aws-lambda-go/events"
)

type IngestionStarter interface {
	Start(ctx context.Context, ev events.S3Event) (*kbsync.Job, error)
}

// KBSyncHandler returns an error on failure so the asynchronous S3
// invocation is retried by Lambda.
type KBSyncHandler struct {
	syncer IngestionStarter
}

func NewKBSyncHandler(s IngestionStarter) *KBSyncHandler {
	return &KBSyncHandler{syncer: s}
}

func (h *KBSyncHandler) Handle(ctx context.Context, ev events.S3Event) (events.APIGatewayProxyResponse, error) {
	job, err := h.syncer.Start(ctx, ev)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return jsonOK(job), nil
}
