// Package alerts publishes operator notifications over SNS.
package alerts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Failure describes a generation job that gave up.
type Failure struct {
	Kind         string
	JobID        string
	ConnectionID string
	CourseTitle  string
	Attempts     int
	Reason       string
}

type Notifier struct {
	sns      Publisher
	topicARN string
	now      func() time.Time
}

// NewNotifier returns a notifier that does nothing when topicARN is empty.
func NewNotifier(p Publisher, topicARN string) *Notifier {
	return &Notifier{sns: p, topicARN: strings.TrimSpace(topicARN), now: time.Now}
}

func (n *Notifier) GenerationFailed(ctx context.Context, f Failure) error {
	if n == nil || n.topicARN == "" {
		return nil
	}
	subject, message := buildMessage(f, n.now().UTC())

	if _, err := n.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	}); err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

func buildMessage(f Failure, at time.Time) (subject string, body string) {
	subject = fmt.Sprintf("coursegen: %s generation failed", f.Kind)
	// SNS subjects are capped at 100 characters.
	if len(subject) > 100 {
		subject = subject[:100]
	}

	lines := []string{
		"Course generation job failed",
		"",
		fmt.Sprintf("Kind: %s", f.Kind),
	}
	if f.JobID != "" {
		lines = append(lines, fmt.Sprintf("JobId: %s", f.JobID))
	}
	if f.ConnectionID != "" {
		lines = append(lines, fmt.Sprintf("ConnectionId: %s", f.ConnectionID))
	}
	if f.CourseTitle != "" {
		lines = append(lines, fmt.Sprintf("CourseTitle: %s", f.CourseTitle))
	}
	if f.Attempts > 0 {
		lines = append(lines, fmt.Sprintf("Attempts: %d", f.Attempts))
	}
	if f.Reason != "" {
		lines = append(lines, fmt.Sprintf("Reason: %s", f.Reason))
	}
	lines = append(lines, "", fmt.Sprintf("FailedAt: %s", at.Format(time.RFC3339)))

	return subject, strings.Join(lines, "\n")
}
