package handlers

import (
	"context"
	"fmt"
	"net/http"

	"coursegen/internal/wsapi"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

type Pusher interface {
	Send(ctx context.Context, connectionID string, v any) error
}

// PusherFactory builds a Pusher for a callback endpoint.
type PusherFactory func(endpoint string) Pusher

// Help is the usage message sent to clients that hit $default.
type Help struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

const (
	helpStatus  = "you invoked the default route!! Check the correct ROUTE and WS endpoint"
	helpMessage = `if you want to invoke courseOutline route please pass dictionary in following format {"action":"courseOutline", "user_prompt":"As a user..."}
If you want to invoke courseContent route please pass dictionary in following format {"action":"courseContent", "user_prompt":"As a user..."}
If you want to invoke qnaBot route please pass dictionary in following format {"action":"qnaBot", "user_question":"What is Machine..."}`
)

func DefaultHelp() Help {
	return Help{Status: helpStatus, Message: helpMessage}
}

type DefaultRouteHandler struct {
	pushers  PusherFactory
	endpoint string
	log      *zap.Logger
}

// NewDefaultRouteHandler pushes through endpoint when set, otherwise through
// the endpoint of the calling API.
func NewDefaultRouteHandler(pushers PusherFactory, endpoint string, log *zap.Logger) *DefaultRouteHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &DefaultRouteHandler{pushers: pushers, endpoint: endpoint, log: log}
}

func (h *DefaultRouteHandler) Handle(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	rc := req.RequestContext
	if rc.RouteKey != "$default" {
		return text(http.StatusInternalServerError, fmt.Sprintf("Unrecognized routeKey %s", rc.RouteKey)), nil
	}

	help := DefaultHelp()
	p := h.pushers(wsapi.Endpoint(h.endpoint, rc.DomainName, rc.Stage))
	if err := p.Send(ctx, rc.ConnectionID, help); err != nil {
		h.log.Warn("failed to send help to client", zap.String("connection_id", rc.ConnectionID), zap.Error(err))
	}
	return jsonOK(help), nil
}
