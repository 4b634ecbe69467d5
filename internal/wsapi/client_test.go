package wsapi

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePost struct {
	in  *apigatewaymanagementapi.PostToConnectionInput
	err error
}

func (f *fakePost) PostToConnection(_ context.Context, in *apigatewaymanagementapi.PostToConnectionInput, _ ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error) {
	f.in = in
	return &apigatewaymanagementapi.PostToConnectionOutput{}, f.err
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "https://abc.execute-api.us-east-1.amazonaws.com/dev",
		Endpoint("", "abc.execute-api.us-east-1.amazonaws.com", "dev"))
	assert.Equal(t, "https://ws.example.com/prod",
		Endpoint("https://ws.example.com/prod/", "abc", "dev"))
	assert.Equal(t, "", Endpoint("", "", "dev"))
}

func TestSend_EncodesJSON(t *testing.T) {
	api := &fakePost{}
	c := NewWithAPI(api)

	require.NoError(t, c.Send(context.Background(), "conn-1", map[string]any{"ok": true}))
	assert.Equal(t, "conn-1", *api.in.ConnectionId)
	assert.JSONEq(t, `{"ok":true}`, string(api.in.Data))

	require.NoError(t, c.Send(context.Background(), "conn-1", `{"partial`))
	assert.Equal(t, `"{\"partial"`, string(api.in.Data))
}

func TestSend_Gone(t *testing.T) {
	c := NewWithAPI(&fakePost{err: &types.GoneException{}})
	err := c.Send(context.Background(), "conn-1", "hi")
	assert.ErrorIs(t, err, ErrGone)
}

func TestSend_OtherError(t *testing.T) {
	c := NewWithAPI(&fakePost{err: errors.New("boom")})
	err := c.Send(context.Background(), "conn-1", "hi")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrGone)
}

func TestSend_EmptyConnection(t *testing.T) {
	c := NewWithAPI(&fakePost{})
	require.Error(t, c.Send(context.Background(), "", "hi"))
}
