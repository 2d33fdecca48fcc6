package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/smart-allotment-api/internal/dto"
	"github.com/noah-isme/smart-allotment-api/internal/models"
	appErrors "github.com/noah-isme/smart-allotment-api/pkg/errors"
	"github.com/noah-isme/smart-allotment-api/pkg/jobs"
)

type recordingDispatcher struct {
	jobs []jobs.Job
	err  error
}

func (r *recordingDispatcher) Enqueue(job jobs.Job) error {
	if r.err != nil {
		return r.err
	}
	r.jobs = append(r.jobs, job)
	return nil
}

func newExportJobServiceForTest(t *testing.T) (*ExportJobService, *recordingDispatcher) {
	t.Helper()
	exporter, _ := newExportServiceForTest(t, sampleSchedule())
	svc := NewExportJobService(ExportJobServiceParams{Exporter: exporter, Config: ExportJobServiceConfig{ResultTTL: time.Hour}})
	dispatcher := &recordingDispatcher{}
	svc.UseQueue(dispatcher)
	return svc, dispatcher
}

func TestExportJobLifecycle(t *testing.T) {
	svc, dispatcher := newExportJobServiceForTest(t)
	ctx := context.Background()

	job, err := svc.CreateJob(ctx, dto.CreateExportRequest{Format: "csv", RoomID: "B101"}, "Registrar")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	require.Len(t, dispatcher.jobs, 1)
	assert.Equal(t, job.ID, dispatcher.jobs[0].ID)

	require.NoError(t, svc.Handle(ctx, dispatcher.jobs[0]))

	status, err := svc.GetStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, status.Status)
	require.NotEmpty(t, status.DownloadURL)
	require.NotNil(t, status.ExpiresAt)

	token := status.DownloadURL[strings.LastIndex(status.DownloadURL, "/")+1:]
	download, err := svc.ResolveDownload(ctx, token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, "text/csv", download.ContentType)
	assert.True(t, strings.HasSuffix(download.Filename, ".csv"))

	body, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Dr. Rao")
	assert.NotContains(t, string(body), "Registrar", "room filter applies")
}

func TestExportJobCreateValidation(t *testing.T) {
	svc, dispatcher := newExportJobServiceForTest(t)
	ctx := context.Background()

	_, err := svc.CreateJob(ctx, dto.CreateExportRequest{Format: "xlsx"}, "")
	assert.ErrorIs(t, err, appErrors.ErrInvalidInput)

	_, err = svc.CreateJob(ctx, dto.CreateExportRequest{Format: "pdf", RoomID: "Z999"}, "")
	assert.ErrorIs(t, err, appErrors.ErrInvalidInput)
	assert.Empty(t, dispatcher.jobs)

	_, err = svc.GetStatus(ctx, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestExportJobEnqueueFailureMarksFailed(t *testing.T) {
	svc, dispatcher := newExportJobServiceForTest(t)
	dispatcher.err = errors.New("queue not started")

	_, err := svc.CreateJob(context.Background(), dto.CreateExportRequest{Format: "csv"}, "")
	assert.ErrorIs(t, err, appErrors.ErrInternal)

	svc.mu.RLock()
	defer svc.mu.RUnlock()
	require.Len(t, svc.jobs, 1)
	for _, job := range svc.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
		assert.NotNil(t, job.FinishedAt)
	}
}

func TestExportJobResolveDownloadRejectsBadTokens(t *testing.T) {
	svc, dispatcher := newExportJobServiceForTest(t)
	ctx := context.Background()

	_, err := svc.ResolveDownload(ctx, "garbage")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	job, err := svc.CreateJob(ctx, dto.CreateExportRequest{Format: "csv"}, "")
	require.NoError(t, err)
	require.NoError(t, svc.Handle(ctx, dispatcher.jobs[0]))

	token, _, err := svc.exporter.signer.Generate(job.ID, "schedule_forged.csv")
	require.NoError(t, err)
	_, err = svc.ResolveDownload(ctx, token)
	assert.ErrorIs(t, err, appErrors.ErrForbidden, "a valid signature for another file must not resolve")
}

func TestExportJobMarkExhausted(t *testing.T) {
	svc, dispatcher := newExportJobServiceForTest(t)
	ctx := context.Background()

	job, err := svc.CreateJob(ctx, dto.CreateExportRequest{Format: "csv"}, "")
	require.NoError(t, err)
	svc.MarkExhausted(dispatcher.jobs[0], errors.New("disk full"))

	status, err := svc.GetStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFailed, status.Status)
	assert.Equal(t, "disk full", status.ErrorMessage)
}

func TestExportJobCleanupDropsExpiredJobs(t *testing.T) {
	svc, dispatcher := newExportJobServiceForTest(t)
	ctx := context.Background()

	job, err := svc.CreateJob(ctx, dto.CreateExportRequest{Format: "csv"}, "")
	require.NoError(t, err)
	require.NoError(t, svc.Handle(ctx, dispatcher.jobs[0]))

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	svc.cleanupExpired()

	_, err = svc.GetStatus(ctx, job.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestExportJobThroughQueue(t *testing.T) {
	exporter, _ := newExportServiceForTest(t, sampleSchedule())
	svc := NewExportJobService(ExportJobServiceParams{Exporter: exporter})
	queue := jobs.NewQueue("schedule-exports", svc.Handle, jobs.QueueConfig{Logger: zap.NewNop(), OnExhausted: svc.MarkExhausted})
	svc.UseQueue(queue)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)
	defer queue.Stop()

	job, err := svc.CreateJob(ctx, dto.CreateExportRequest{Format: "pdf"}, "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		status, err := svc.GetStatus(ctx, job.ID)
		return err == nil && status.Status == models.ExportStatusFinished
	}, 5*time.Second, 20*time.Millisecond)
}
