// Package connections keeps the WebSocket connection table current.
package connections

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrEmptyConnectionID = errors.New("empty connection id")

type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Connection is one row of the connections table. TTL is the table's
// time-to-live attribute.
type Connection struct {
	ConnectionID string `dynamodbav:"connectionId"`
	TTL          int64  `dynamodbav:"ttl"`
	ConnectedAt  string `dynamodbav:"connectedAt,omitempty"`
}

type Registry struct {
	ddb   DDBClient
	table string
	ttl   time.Duration
	now   func() time.Time
}

func NewRegistry(ddb DDBClient, table string, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Registry{ddb: ddb, table: table, ttl: ttl, now: time.Now}
}

// Register upserts the connection with a fresh TTL.
func (r *Registry) Register(ctx context.Context, connectionID string) error {
	connectionID = strings.TrimSpace(connectionID)
	if connectionID == "" {
		return ErrEmptyConnectionID
	}

	now := r.now().UTC()
	item, err := attributevalue.MarshalMap(Connection{
		ConnectionID: connectionID,
		TTL:          now.Add(r.ttl).Unix(),
		ConnectedAt:  now.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal connection: %w", err)
	}

	if _, err := r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("ddb put connection %s: %w", connectionID, err)
	}
	return nil
}

func (r *Registry) Remove(ctx context.Context, connectionID string) error {
	connectionID = strings.TrimSpace(connectionID)
	if connectionID == "" {
		return ErrEmptyConnectionID
	}

	if _, err := r.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"connectionId": &types.AttributeValueMemberS{Value: connectionID},
		},
	}); err != nil {
		return fmt.Errorf("ddb delete connection %s: %w", connectionID, err)
	}
	return nil
}
