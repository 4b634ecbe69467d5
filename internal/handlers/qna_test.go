package handlers

import (
	"context"
	"errors"
	"testing"

	"coursegen/internal/qna"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnswerer struct {
	got *qna.Question
	ans *qna.Answer
	err error
}

func (f *fakeAnswerer) Answer(_ context.Context, q *qna.Question) (*qna.Answer, error) {
	f.got = q
	return f.ans, f.err
}

func TestQnA_Answers(t *testing.T) {
	svc := &fakeAnswerer{ans: &qna.Answer{BotResponse: "ML is...", SessionID: "s1", Citations: []qna.Citation{}}}
	h := NewQnAHandler(svc, nil)

	resp, err := h.Handle(context.Background(), wsRequest("qnaBot", `{"action":"qnaBot","user_question":"What is ML?","course_name":"ML","week_number":2}`))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.JSONEq(t, `{"bot_response":"ML is...","session_id":"s1","citations":[]}`, resp.Body)
	assert.Equal(t, "ML", svc.got.CourseName)
}

func TestQnA_BadRequests(t *testing.T) {
	h := NewQnAHandler(&fakeAnswerer{}, nil)

	resp, err := h.Handle(context.Background(), wsRequest("qnaBot", `{"user_question":""}`))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Contains(t, resp.Body, "user_question_required")

	resp, err = h.Handle(context.Background(), wsRequest("qnaBot", `{`))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestQnA_ServiceError(t *testing.T) {
	h := NewQnAHandler(&fakeAnswerer{err: errors.New("kb down")}, nil)
	resp, err := h.Handle(context.Background(), wsRequest("qnaBot", `{"user_question":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
}
