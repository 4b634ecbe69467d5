package db

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// LoadAWSConfig uses the Lambda execution role credentials. Bedrock calls can
// run for minutes, so the HTTP timeout and retry budget are raised.
func LoadAWSConfig(ctx context.Context, timeout time.Duration, maxAttempts int) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{}
	if timeout > 0 {
		opts = append(opts, config.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(timeout)))
	}
	if maxAttempts > 0 {
		opts = append(opts, config.WithRetryer(func() aws.Retryer {
			return retry.AddWithMaxAttempts(retry.NewStandard(), maxAttempts)
		}))
	}
	return config.LoadDefaultConfig(ctx, opts...)
}

func NewDynamoClient(cfg aws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg)
}

// IsConditionalCheckFailed reports whether a conditional write lost.
func IsConditionalCheckFailed(err error) bool {
	var cfe *types.ConditionalCheckFailedException
	return errors.As(err, &cfe)
}

// ExpiresAt renders a DynamoDB TTL attribute value (epoch seconds).
func ExpiresAt(now time.Time, ttl time.Duration) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(ttl).Unix(), 10)}
}
