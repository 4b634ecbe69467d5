// Package wsapi pushes messages back to WebSocket clients through the
// API Gateway Management API.
package wsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
)

// ErrGone means the client disconnected before we could answer.
var ErrGone = errors.New("websocket connection gone")

type PostAPI interface {
	PostToConnection(ctx context.Context, params *apigatewaymanagementapi.PostToConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error)
}

type Client struct {
	api PostAPI
}

func New(cfg aws.Config, endpoint string) *Client {
	return &Client{api: apigatewaymanagementapi.NewFromConfig(cfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})}
}

func NewWithAPI(api PostAPI) *Client {
	return &Client{api: api}
}

// Endpoint prefers the configured callback URL and otherwise derives it from
// the request context of the original WebSocket event.
func Endpoint(configured, domainName, stage string) string {
	if s := strings.TrimSpace(configured); s != "" {
		return strings.TrimRight(s, "/")
	}
	if domainName == "" {
		return ""
	}
	return fmt.Sprintf("https://%s/%s", domainName, stage)
}

// Send JSON-encodes v and posts it to the connection. A plain string is sent
// as a JSON string, matching what browser clients JSON.parse.
func (c *Client) Send(ctx context.Context, connectionID string, v any) error {
	if strings.TrimSpace(connectionID) == "" {
		return fmt.Errorf("post to connection: empty connection id")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal ws payload: %w", err)
	}

	_, err = c.api.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connectionID),
		Data:         b,
	})
	if err != nil {
		var gone *types.GoneException
		if errors.As(err, &gone) {
			return fmt.Errorf("%w: %s", ErrGone, connectionID)
		}
		return fmt.Errorf("post to connection %s: %w", connectionID, err)
	}
	return nil
}
