package handlers

import (
	"context"
	"errors"
	"testing"

	"coursegen/internal/kbsync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStarter struct {
	job *kbsync.Job
	err error
}

func (f fakeStarter) Start(context.Context, events.S3Event) (*kbsync.Job, error) {
	return f.job, f.err
}

func TestKBSync(t *testing.T) {
	h := NewKBSyncHandler(fakeStarter{job: &kbsync.Job{IngestionJobID: "ij-1", Status: "STARTING"}})
	resp, err := h.Handle(context.Background(), events.S3Event{})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Body, `"ingestion_job_id":"ij-1"`)

	h = NewKBSyncHandler(fakeStarter{err: errors.New("conflict")})
	_, err = h.Handle(context.Background(), events.S3Event{})
	require.Error(t, err)
}
