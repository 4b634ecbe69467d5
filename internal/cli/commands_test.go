package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seen struct {
	mu    sync.Mutex
	token string
	body  map[string]any
}

func (s *seen) get() (string, map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.body
}

// echoServer replies to every request with the given frames and records the
// token and the request body it saw.
func echoServer(t *testing.T, frames ...string) (*httptest.Server, *seen) {
	t.Helper()
	rec := &seen{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()

		_, msg, err := c.Read(r.Context())
		if err != nil {
			return
		}
		rec.mu.Lock()
		rec.token = r.URL.Query().Get(AuthQueryParam)
		_ = json.Unmarshal(msg, &rec.body)
		rec.mu.Unlock()

		for _, f := range frames {
			if err := c.Write(r.Context(), websocket.MessageText, []byte(f)); err != nil {
				return
			}
		}
		_, _, _ = c.Read(r.Context())
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand(nil)
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestOutlineCommand(t *testing.T) {
	srv, rec := echoServer(t,
		`{"connection_id":"c","message_id":"m","job_id":"j","status":"queued"}`,
		`{"CourseOutline":{"course_title":"Intro to ML"}}`,
	)

	out, err := run(t, "outline", "--endpoint", srv.URL, "--token", "id-token",
		"--title", "Intro to ML", "--weeks", "4", "--uri", "s3://b/a.pdf", "--uri", "s3://b/b.txt", "--stream")
	require.NoError(t, err)

	token, got := rec.get()
	assert.Equal(t, "id-token", token)
	assert.Equal(t, "courseOutline", got["action"])
	assert.Equal(t, "Intro to ML", got["course_title"])
	assert.Equal(t, "4", got["course_duration"])
	assert.Equal(t, "yes", got["is_streaming"])
	assert.Equal(t, []any{"s3://b/a.pdf", "s3://b/b.txt"}, got["s3_input_uri_list"])
	assert.Contains(t, out, `"course_title": "Intro to ML"`)
}

func TestContentCommand(t *testing.T) {
	srv, rec := echoServer(t, `{"CourseContent":{"main_learning_outcome":"x"}}`)

	_, err := run(t, "content", "--endpoint", srv.URL,
		"--title", "ML", "--week", "2", "--main-outcome", "Understand models",
		"--sub-outcome", "Define a model, with examples", "--sub-outcome", "Train one")
	require.NoError(t, err)

	_, got := rec.get()
	assert.Equal(t, "courseContent", got["action"])
	assert.Equal(t, "2", got["week_number"])
	assert.Equal(t, []any{"Define a model, with examples", "Train one"}, got["sub_learning_outcome_list"])
}

func TestAskCommand(t *testing.T) {
	srv, rec := echoServer(t, `{"bot_response":"A model is...","session_id":"s1","citations":[]}`)

	out, err := run(t, "ask", "--endpoint", srv.URL, "--course", "ML", "What", "is", "a", "model?")
	require.NoError(t, err)

	_, got := rec.get()
	assert.Equal(t, "qnaBot", got["action"])
	assert.Equal(t, "What is a model?", got["user_question"])
	assert.Equal(t, "ML", got["course_name"])
	assert.Contains(t, out, "A model is...")
}

func TestCommandValidation(t *testing.T) {
	_, err := run(t, "outline", "--endpoint", "ws://unused", "--weeks", "4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "course_title")

	t.Setenv("COURSEGEN_WS_URL", "")
	_, err = run(t, "ask", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--endpoint")
}
