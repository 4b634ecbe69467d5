package handlers

import (
	"context"
	"errors"
	"net/http"

	"coursegen/internal/qna"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

type Answerer interface {
	Answer(ctx context.Context, q *qna.Question) (*qna.Answer, error)
}

// QnAHandler serves the qnaBot route. The answer is the route response, so
// API Gateway returns it to the caller.
type QnAHandler struct {
	svc Answerer
	log *zap.Logger
}

func NewQnAHandler(svc Answerer, log *zap.Logger) *QnAHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &QnAHandler{svc: svc, log: log}
}

func (h *QnAHandler) Handle(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	log := h.log.With(zap.String("connection_id", req.RequestContext.ConnectionID))

	q, err := qna.ParseQuestion(req.Body)
	if err != nil {
		if errors.Is(err, qna.ErrEmptyQuestion) {
			return jsonErr(http.StatusBadRequest, "user_question_required", nil), nil
		}
		return jsonErr(http.StatusBadRequest, "invalid_json", err), nil
	}

	ans, err := h.svc.Answer(ctx, q)
	if err != nil {
		log.Error("qna failed", zap.Error(err))
		return jsonErr(http.StatusInternalServerError, "qna_failed", err), nil
	}
	return jsonOK(ans), nil
}
