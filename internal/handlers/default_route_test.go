package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePusher struct {
	endpoint string
	sent     []any
	err      error
}

func (f *fakePusher) Send(_ context.Context, _ string, v any) error {
	f.sent = append(f.sent, v)
	return f.err
}

func (f *fakePusher) factory() PusherFactory {
	return func(endpoint string) Pusher {
		f.endpoint = endpoint
		return f
	}
}

func TestDefaultRoute_SendsHelp(t *testing.T) {
	p := &fakePusher{}
	h := NewDefaultRouteHandler(p.factory(), "", nil)

	resp, err := h.Handle(context.Background(), wsRequest("$default", `{"hello":1}`))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "https://abc123.execute-api.us-east-1.amazonaws.com/prod", p.endpoint)
	require.Len(t, p.sent, 1)

	var help Help
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &help))
	assert.Contains(t, help.Message, `"action":"qnaBot"`)
	assert.Equal(t, DefaultHelp(), help)
}

func TestDefaultRoute_PushFailureIsNotFatal(t *testing.T) {
	p := &fakePusher{err: errors.New("gone")}
	h := NewDefaultRouteHandler(p.factory(), "https://override.example.com/prod/", nil)

	resp, err := h.Handle(context.Background(), wsRequest("$default", ""))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "https://override.example.com/prod", p.endpoint)
}

func TestDefaultRoute_UnknownRoute(t *testing.T) {
	p := &fakePusher{}
	h := NewDefaultRouteHandler(p.factory(), "", nil)

	resp, err := h.Handle(context.Background(), wsRequest("somethingElse", ""))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, "Unrecognized routeKey somethingElse", resp.Body)
	assert.Empty(t, p.sent)
}
