package handlers

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

type ConnectionRegistry interface {
	Register(ctx context.Context, connectionID string) error
	Remove(ctx context.Context, connectionID string) error
}

// ConnectionHandler serves the $connect and $disconnect routes.
type ConnectionHandler struct {
	reg ConnectionRegistry
	log *zap.Logger
}

func NewConnectionHandler(reg ConnectionRegistry, log *zap.Logger) *ConnectionHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ConnectionHandler{reg: reg, log: log}
}

func (h *ConnectionHandler) Connect(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	id := req.RequestContext.ConnectionID
	if err := h.reg.Register(ctx, id); err != nil {
		h.log.Error("register connection", zap.String("connection_id", id), zap.Error(err))
		return text(http.StatusInternalServerError, "Failed to connect."), nil
	}
	h.log.Info("connected", zap.String("connection_id", id))
	return text(http.StatusOK, "Connected."), nil
}

func (h *ConnectionHandler) Disconnect(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	id := req.RequestContext.ConnectionID
	if err := h.reg.Remove(ctx, id); err != nil {
		h.log.Error("remove connection", zap.String("connection_id", id), zap.Error(err))
		return text(http.StatusInternalServerError, "Failed to disconnect."), nil
	}
	h.log.Info("disconnected", zap.String("connection_id", id))
	return text(http.StatusOK, "Disconnected."), nil
}
