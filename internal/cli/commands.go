package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"coursegen/internal/course"
	"coursegen/internal/qna"

	"github.com/spf13/cobra"
)

// DialFunc opens the connection a command talks over.
type DialFunc func(ctx context.Context, endpoint, token string) (Conn, func(), error)

type globals struct {
	endpoint string
	token    string
	timeout  time.Duration
	dial     DialFunc
}

func defaultDial(ctx context.Context, endpoint, token string) (Conn, func(), error) {
	c, err := Dial(ctx, endpoint, token)
	if err != nil {
		return nil, nil, err
	}
	return c, func() { _ = c.CloseNow() }, nil
}

// NewRootCommand builds the coursegen command tree. A nil dial uses a real
// WebSocket connection.
func NewRootCommand(dial DialFunc) *cobra.Command {
	g := &globals{dial: dial}
	if g.dial == nil {
		g.dial = defaultDial
	}

	root := &cobra.Command{
		Use:           "coursegen",
		Short:         "Generate course outlines and content over the WebSocket API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.endpoint, "endpoint", os.Getenv("COURSEGEN_WS_URL"), "WebSocket endpoint (wss://...)")
	root.PersistentFlags().StringVar(&g.token, "token", os.Getenv("COURSEGEN_TOKEN"), "Cognito ID token")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 15*time.Minute, "give up after this long")

	root.AddCommand(newOutlineCommand(g), newContentCommand(g), newAskCommand(g))
	return root
}

func (g *globals) send(cmd *cobra.Command, req any) error {
	if strings.TrimSpace(g.endpoint) == "" {
		return errors.New("--endpoint (or COURSEGEN_WS_URL) is required")
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
	defer cancel()

	conn, closeFn, err := g.dial(ctx, g.endpoint, g.token)
	if err != nil {
		return err
	}
	defer closeFn()

	_, err = NewSession(conn, cmd.OutOrStdout(), cmd.ErrOrStderr()).Run(ctx, req)
	return err
}

type outlineMessage struct {
	Action string `json:"action"`
	course.OutlineRequest
}

func newOutlineCommand(g *globals) *cobra.Command {
	var (
		req    course.OutlineRequest
		weeks  string
		stream bool
	)
	cmd := &cobra.Command{
		Use:   "outline",
		Short: "Generate a course outline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.CourseDuration = course.Scalar(weeks)
			req.IsStreaming = course.Streaming(stream)
			if err := req.Validate(); err != nil {
				return err
			}
			return g.send(cmd, outlineMessage{Action: ActionOutline, OutlineRequest: req})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.CourseTitle, "title", "", "course title")
	f.StringVar(&weeks, "weeks", "", "course duration in weeks")
	f.StringVar(&req.UserPrompt, "prompt", "", "override the user prompt")
	f.StringSliceVar(&req.S3InputURIList, "uri", nil, "s3:// source document (repeatable)")
	f.BoolVar(&stream, "stream", false, "stream partial output")
	return cmd
}

type contentMessage struct {
	Action string `json:"action"`
	course.ContentRequest
}

func newContentCommand(g *globals) *cobra.Command {
	var (
		req    course.ContentRequest
		week   string
		stream bool
	)
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Generate the content for one week",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.WeekNumber = course.Scalar(week)
			req.IsStreaming = course.Streaming(stream)
			if err := req.Validate(); err != nil {
				return err
			}
			return g.send(cmd, contentMessage{Action: ActionContent, ContentRequest: req})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.CourseTitle, "title", "", "course title")
	f.StringVar(&week, "week", "", "week number")
	f.StringVar(&req.MainLearningOutcome, "main-outcome", "", "main learning outcome")
	f.StringArrayVar(&req.SubLearningOutcomeList, "sub-outcome", nil, "sub learning outcome (repeatable)")
	f.StringVar(&req.UserPrompt, "prompt", "", "override the user prompt")
	f.StringSliceVar(&req.S3InputURIList, "uri", nil, "s3:// source document (repeatable)")
	f.BoolVar(&stream, "stream", false, "stream partial output")
	return cmd
}

type askMessage struct {
	Action string `json:"action"`
	qna.Question
}

func newAskCommand(g *globals) *cobra.Command {
	var (
		q    qna.Question
		week string
	)
	cmd := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Ask the course QnA bot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q.UserQuestion = strings.Join(args, " ")
			q.WeekNumber = course.Scalar(week)
			return g.send(cmd, askMessage{Action: ActionQnA, Question: q})
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.CourseName, "course", "", "restrict retrieval to this course name")
	f.StringVar(&q.CourseID, "course-id", "", "restrict retrieval to this course id")
	f.StringVar(&week, "week", "", "restrict retrieval to weeks up to this one")
	f.StringVar(&q.SessionID, "session", "", "continue a previous session")
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand(nil).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "coursegen:", err)
		os.Exit(1)
	}
}
