// Package cli is a small WebSocket client for driving the course generator
// from a terminal.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/coder/websocket"
)

// Route actions understood by the WebSocket API.
const (
	ActionOutline = "courseOutline"
	ActionContent = "courseContent"
	ActionQnA     = "qnaBot"
)

// AuthQueryParam carries the ID token on the connect request, since browsers
// cannot set headers on a WebSocket upgrade.
const AuthQueryParam = "Authorization"

var ErrClosed = errors.New("connection closed before a final frame")

// DialURL appends the token to the endpoint's query string.
func DialURL(endpoint, token string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("endpoint %q: unsupported scheme", endpoint)
	}
	if token != "" {
		q := u.Query()
		q.Set(AuthQueryParam, token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func Dial(ctx context.Context, endpoint, token string) (*websocket.Conn, error) {
	target, err := DialURL(endpoint, token)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.Dial(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("dial websocket: %w", err)
	}
	conn.SetReadLimit(4 << 20)
	return conn, nil
}

// Frame is one message received from the server.
type Frame struct {
	Raw    []byte
	Text   string
	Object map[string]any
}

func parseFrame(b []byte) Frame {
	f := Frame{Raw: b}
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return f
	}
	switch trimmed[0] {
	case '"':
		if err := json.Unmarshal(trimmed, &f.Text); err == nil {
			return f
		}
	case '{':
		if err := json.Unmarshal(trimmed, &f.Object); err == nil {
			return f
		}
	}
	f.Text = string(b)
	return f
}

// IsAck reports whether the frame is the enqueue acknowledgement.
func (f Frame) IsAck() bool {
	if f.Object == nil {
		return false
	}
	status, _ := f.Object["status"].(string)
	_, hasJob := f.Object["job_id"]
	return status == "queued" && hasJob
}

// IsFinal reports whether no more frames will follow for this request.
func (f Frame) IsFinal() bool {
	if f.Object != nil {
		return !f.IsAck()
	}
	return strings.HasPrefix(f.Text, "Unable to generate") || strings.HasPrefix(f.Text, "Invalid ")
}

// Conn is the subset of *websocket.Conn the session needs.
type Conn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
}

// Session sends one request and prints what comes back.
type Session struct {
	conn Conn
	out  io.Writer
	info io.Writer
}

func NewSession(conn Conn, out, info io.Writer) *Session {
	if info == nil {
		info = io.Discard
	}
	return &Session{conn: conn, out: out, info: info}
}

// Run writes the request and prints frames until a final one arrives. Delta
// strings are printed as they arrive; objects are printed indented.
func (s *Session) Run(ctx context.Context, req any) (map[string]any, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	if err := s.conn.Write(ctx, websocket.MessageText, b); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	streamed := false
	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				return nil, ErrClosed
			}
			return nil, fmt.Errorf("read frame: %w", err)
		}

		f := parseFrame(msg)
		switch {
		case f.IsAck():
			fmt.Fprintf(s.info, "queued job %v\n", f.Object["job_id"])
		case f.Object != nil:
			if streamed {
				fmt.Fprintln(s.out)
			}
			pretty, err := json.MarshalIndent(f.Object, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("format result: %w", err)
			}
			fmt.Fprintln(s.out, string(pretty))
			return f.Object, nil
		case f.IsFinal():
			fmt.Fprintln(s.out, f.Text)
			return nil, fmt.Errorf("server: %s", f.Text)
		default:
			streamed = true
			fmt.Fprint(s.out, f.Text)
		}
	}
}
