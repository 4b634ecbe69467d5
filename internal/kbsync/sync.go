// Package kbsync starts a knowledge-base ingestion job when reference
// documents change in S3.
package kbsync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"go.uber.org/zap"
)

const ingestionDescription = "S3 files uploaded or created event"

var ErrEmptyEvent = errors.New("s3 event has no records")

type AgentClient interface {
	StartIngestionJob(ctx context.Context, params *bedrockagent.StartIngestionJobInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.StartIngestionJobOutput, error)
}

// Job is the summary returned to the caller.
type Job struct {
	IngestionJobID  string `json:"ingestion_job_id"`
	Status          string `json:"status"`
	KnowledgeBaseID string `json:"knowledge_base_id"`
	DataSourceID    string `json:"data_source_id"`
	ClientToken     string `json:"client_token"`
}

type Syncer struct {
	client          AgentClient
	knowledgeBaseID string
	dataSourceID    string
	log             *zap.Logger
}

func NewSyncer(c AgentClient, knowledgeBaseID, dataSourceID string, log *zap.Logger) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Syncer{client: c, knowledgeBaseID: knowledgeBaseID, dataSourceID: dataSourceID, log: log}
}

// ClientToken derives the idempotency token from the S3 request id, so a
// redelivered notification does not start a second job.
func ClientToken(requestID string) string {
	sum := sha256.Sum256([]byte(requestID))
	return hex.EncodeToString(sum[:])
}

func (s *Syncer) Start(ctx context.Context, ev events.S3Event) (*Job, error) {
	if len(ev.Records) == 0 {
		return nil, ErrEmptyEvent
	}
	first := ev.Records[0]
	reqID := first.ResponseElements["x-amz-request-id"]
	if reqID == "" {
		return nil, fmt.Errorf("s3 event: missing x-amz-request-id")
	}
	token := ClientToken(reqID)

	for _, r := range ev.Records {
		s.log.Info("document change",
			zap.String("event", r.EventName),
			zap.String("bucket", r.S3.Bucket.Name),
			zap.String("key", r.S3.Object.Key))
	}

	out, err := s.client.StartIngestionJob(ctx, &bedrockagent.StartIngestionJobInput{
		ClientToken:     aws.String(token),
		DataSourceId:    aws.String(s.dataSourceID),
		KnowledgeBaseId: aws.String(s.knowledgeBaseID),
		Description:     aws.String(ingestionDescription),
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock StartIngestionJob: %w", err)
	}

	job := &Job{
		KnowledgeBaseID: s.knowledgeBaseID,
		DataSourceID:    s.dataSourceID,
		ClientToken:     token,
	}
	if ij := out.IngestionJob; ij != nil {
		job.IngestionJobID = aws.ToString(ij.IngestionJobId)
		job.Status = string(ij.Status)
	}
	s.log.Info("ingestion job started",
		zap.String("ingestion_job_id", job.IngestionJobID),
		zap.String("status", job.Status))
	return job, nil
}
