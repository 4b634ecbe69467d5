// Package jobs records generation jobs and guards workers against SQS
// redelivery. Every operation is a no-op when no table is configured.
package jobs

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"coursegen/internal/db"
)

type Status string

const (
	StatusQueued     Status = "QUEUED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

type Job struct {
	PK           string `dynamodbav:"PK"`
	JobID        string `dynamodbav:"JobId"`
	Kind         string `dynamodbav:"Kind"`
	ConnectionID string `dynamodbav:"ConnectionId"`
	Status       Status `dynamodbav:"Status"`
	CreatedAt    string `dynamodbav:"CreatedAt"`
	ExpiresAt    int64  `dynamodbav:"ExpiresAt"`
}

// Claim states. An active claim whose lease has passed belongs to an
// invocation that died mid-job and may be taken over.
const (
	claimActive = "ACTIVE"
	claimDone   = "DONE"
)

// DefaultLease covers the longest Lambda timeout.
const DefaultLease = 15 * time.Minute

type Store struct {
	ddb   DDBClient
	table string
	ttl   time.Duration
	lease time.Duration
	now   func() time.Time
}

func NewStore(ddb DDBClient, table string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Store{ddb: ddb, table: strings.TrimSpace(table), ttl: ttl, lease: DefaultLease, now: time.Now}
}

// WithLease sets how long a claim is held when the context carries no
// deadline.
func (s *Store) WithLease(d time.Duration) *Store {
	if d > 0 {
		s.lease = d
	}
	return s
}

func (s *Store) Enabled() bool { return s != nil && s.table != "" }

func JobPK(jobID string) string { return fmt.Sprintf("JOB#%s", jobID) }
func MessagePK(messageID string) string { return fmt.Sprintf("MSG#%s", messageID) }

// Create writes a QUEUED job row.
func (s *Store) Create(ctx context.Context, jobID, kind, connectionID string) error {
	if !s.Enabled() {
		return nil
	}
	now := s.now().UTC()
	item, err := attributevalue.MarshalMap(Job{
		PK:           JobPK(jobID),
		JobID:        jobID,
		Kind:         kind,
		ConnectionID: connectionID,
		Status:       StatusQueued,
		CreatedAt:    now.Format(time.RFC3339),
		ExpiresAt:    now.Add(s.ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if _, err := s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("ddb put job %s: %w", jobID, err)
	}
	return nil
}

// Claim returns (isDuplicate, error). If duplicate, the caller should skip
// the message: another invocation holds a live lease on it or already
// finished it. The lease runs to the context deadline (the Lambda timeout)
// or, without one, for the store's lease duration.
func (s *Store) Claim(ctx context.Context, messageID, jobID string) (bool, error) {
	if !s.Enabled() || strings.TrimSpace(messageID) == "" {
		return false, nil
	}
	now := s.now().UTC()
	until := now.Add(s.lease)
	if dl, ok := ctx.Deadline(); ok {
		until = dl.UTC()
	}

	_, err := s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			"PK":         &types.AttributeValueMemberS{Value: MessagePK(messageID)},
			"JobId":      &types.AttributeValueMemberS{Value: jobID},
			"State":      &types.AttributeValueMemberS{Value: claimActive},
			"LeaseUntil": &types.AttributeValueMemberN{Value: strconv.FormatInt(until.Unix(), 10)},
			"CreatedAt":  &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			"ExpiresAt":  db.ExpiresAt(now, s.ttl),
		},
		ConditionExpression:      aws.String("attribute_not_exists(PK) OR (#state = :active AND LeaseUntil < :now)"),
		ExpressionAttributeNames: map[string]string{"#state": "State"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":active": &types.AttributeValueMemberS{Value: claimActive},
			":now":    &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
		},
	})
	if err != nil {
		if db.IsConditionalCheckFailed(err) {
			return true, nil
		}
		return false, fmt.Errorf("ddb claim message %s: %w", messageID, err)
	}
	return false, nil
}

// Finish marks a claim done once the job reached COMPLETED or FAILED, so a
// later redelivery is skipped whatever its lease says.
func (s *Store) Finish(ctx context.Context, messageID string) error {
	if !s.Enabled() || strings.TrimSpace(messageID) == "" {
		return nil
	}
	_, err := s.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: MessagePK(messageID)},
		},
		UpdateExpression:         aws.String("SET #state = :done REMOVE LeaseUntil"),
		ExpressionAttributeNames: map[string]string{"#state": "State"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":done": &types.AttributeValueMemberS{Value: claimDone},
		},
	})
	if err != nil {
		return fmt.Errorf("ddb finish message %s: %w", messageID, err)
	}
	return nil
}

// Release drops a claim so a redelivered message is processed again.
func (s *Store) Release(ctx context.Context, messageID string) error {
	if !s.Enabled() || strings.TrimSpace(messageID) == "" {
		return nil
	}
	_, err := s.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: MessagePK(messageID)},
		},
	})
	if err != nil {
		return fmt.Errorf("ddb release message %s: %w", messageID, err)
	}
	return nil
}

// SetStatus moves a job along. Empty outputKey / errMsg are not written.
func (s *Store) SetStatus(ctx context.Context, jobID string, status Status, outputKey, errMsg string) error {
	if !s.Enabled() || strings.TrimSpace(jobID) == "" {
		return nil
	}

	updateExpr := "SET #s=:s, UpdatedAt=:u"
	names := map[string]string{"#s": "Status"}
	vals := map[string]types.AttributeValue{
		":s": &types.AttributeValueMemberS{Value: string(status)},
		":u": &types.AttributeValueMemberS{Value: s.now().UTC().Format(time.RFC3339)},
	}
	if strings.TrimSpace(outputKey) != "" {
		updateExpr += ", OutputKey=:o"
		vals[":o"] = &types.AttributeValueMemberS{Value: outputKey}
	}
	if strings.TrimSpace(errMsg) != "" {
		updateExpr += ", ErrorMessage=:e"
		vals[":e"] = &types.AttributeValueMemberS{Value: errMsg}
	}

	_, err := s.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: JobPK(jobID)},
		},
		UpdateExpression:          aws.String(updateExpr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: vals,
	})
	if err != nil {
		return fmt.Errorf("ddb update job %s: %w", jobID, err)
	}
	return nil
}
