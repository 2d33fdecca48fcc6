package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/smart-allotment-api/internal/dto"
	"github.com/noah-isme/smart-allotment-api/internal/models"
	appErrors "github.com/noah-isme/smart-allotment-api/pkg/errors"
	"github.com/noah-isme/smart-allotment-api/pkg/export"
	"github.com/noah-isme/smart-allotment-api/pkg/jobs"
)

const exportJobType = "schedule_export"

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// ExportJobServiceConfig governs job retention and cleanup.
type ExportJobServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ExportJobServiceParams groups constructor dependencies.
type ExportJobServiceParams struct {
	Exporter  *ExportService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    ExportJobServiceConfig
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ExportJobService tracks asynchronous export jobs. Jobs live in memory for
// the process lifetime and are dropped once their file expires.
type ExportJobService struct {
	mu   sync.RWMutex
	jobs map[string]*models.ExportJob

	exporter  *ExportService
	queue     jobDispatcher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportJobServiceConfig
	now       func() time.Time
}

// NewExportJobService constructs the job service. A queue must be attached
// with UseQueue before jobs can be created.
func NewExportJobService(params ExportJobServiceParams) *ExportJobService {
	cfg := params.Config
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportJobService{
		jobs:      make(map[string]*models.ExportJob),
		exporter:  params.Exporter,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// UseQueue attaches the dispatcher. The queue's handler is usually Handle,
// hence the two-step wiring.
func (s *ExportJobService) UseQueue(q jobDispatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = q
}

// CreateJob validates the request, records the job and enqueues it.
func (s *ExportJobService) CreateJob(ctx context.Context, req dto.CreateExportRequest, requestedBy string) (*models.ExportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "format must be csv or pdf")
	}
	if req.RoomID != "" && !s.exporter.HasRoom(ctx, req.RoomID) {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("unknown room %s", req.RoomID))
	}

	job := &models.ExportJob{
		ID:          uuid.NewString(),
		Format:      req.Format,
		RoomID:      req.RoomID,
		Status:      models.ExportStatusQueued,
		RequestedBy: requestedBy,
		CreatedAt:   s.now().UTC(),
	}

	s.mu.Lock()
	queue := s.queue
	s.jobs[job.ID] = job
	snapshot := *job
	s.mu.Unlock()

	if queue == nil {
		s.markFailed(job.ID, "export queue unavailable")
		return nil, appErrors.Clone(appErrors.ErrInternal, "exports are not enabled")
	}
	if err := queue.Enqueue(jobs.Job{ID: job.ID, Type: exportJobType}); err != nil {
		s.markFailed(job.ID, "failed to enqueue job")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	s.metrics.ObserveExportJob(snapshot.Format, models.ExportStatusQueued)
	return &snapshot, nil
}

// GetStatus returns a copy of the job.
func (s *ExportJobService) GetStatus(_ context.Context, id string) (*models.ExportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("export job %s not found", id))
	}
	snapshot := *job
	return &snapshot, nil
}

// Handle processes one queue job. Errors are returned so the queue retries.
func (s *ExportJobService) Handle(ctx context.Context, job jobs.Job) error {
	s.mu.Lock()
	record, ok := s.jobs[job.ID]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("export job vanished before processing", zap.String("job_id", job.ID))
		return nil
	}
	record.Status = models.ExportStatusProcessing
	snapshot := *record
	s.mu.Unlock()

	result, err := s.exporter.Generate(ctx, &snapshot)
	if err != nil {
		s.update(job.ID, func(j *models.ExportJob) {
			j.Status = models.ExportStatusQueued
			j.ErrorMessage = err.Error()
		})
		return err
	}

	finishedAt := s.now().UTC()
	expiresAt := result.ExpiresAt
	s.update(job.ID, func(j *models.ExportJob) {
		j.Status = models.ExportStatusFinished
		j.FilePath = result.RelativePath
		j.DownloadURL = result.URL
		j.ExpiresAt = &expiresAt
		j.ErrorMessage = ""
		j.FinishedAt = &finishedAt
	})
	s.metrics.ObserveExportJob(snapshot.Format, models.ExportStatusFinished)
	s.logger.Info("schedule export finished", zap.String("job_id", job.ID), zap.String("format", snapshot.Format), zap.Int("attempt", job.Attempt))
	return nil
}

// MarkExhausted flags a job whose retries ran out. It matches
// jobs.ExhaustedFunc.
func (s *ExportJobService) MarkExhausted(job jobs.Job, err error) {
	msg := "export failed"
	if err != nil {
		msg = err.Error()
	}
	s.markFailed(job.ID, msg)
}

// ResolveDownload validates token and opens the stored export file.
func (s *ExportJobService) ResolveDownload(_ context.Context, token string) (*ExportDownload, error) {
	jobID, relPath, expiresAt, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}

	s.mu.RLock()
	record, ok := s.jobs[jobID]
	var job models.ExportJob
	if ok {
		job = *record
	}
	s.mu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	if job.DownloadURL == "" || !strings.HasSuffix(job.DownloadURL, "/"+token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ExportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}

	renderer, err := export.ForFormat(export.Format(job.Format))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "unsupported export format")
	}
	file, err := s.exporter.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ExportDownload{
		File:        file,
		Filename:    filepath.Base(relPath),
		ContentType: renderer.ContentType(),
		ExpiresAt:   expiresAt,
	}, nil
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ExportJobService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired()
			}
		}
	}()
}

func (s *ExportJobService) cleanupExpired() {
	cutoff := s.now().Add(-s.cfg.ResultTTL)

	s.mu.Lock()
	var stale []models.ExportJob
	for id, job := range s.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			stale = append(stale, *job)
			delete(s.jobs, id)
		}
	}
	s.mu.Unlock()

	for _, job := range stale {
		if job.FilePath == "" {
			continue
		}
		if err := s.exporter.Delete(job.FilePath); err != nil {
			s.logger.Warn("cleanup delete failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	if _, err := s.exporter.Cleanup(s.cfg.ResultTTL); err != nil {
		s.logger.Warn("filesystem cleanup failed", zap.Error(err))
	}
	if len(stale) > 0 {
		s.logger.Info("expired exports purged", zap.Int("jobs", len(stale)))
	}
}

func (s *ExportJobService) markFailed(id, msg string) {
	var format string
	s.update(id, func(j *models.ExportJob) {
		now := s.now().UTC()
		j.Status = models.ExportStatusFailed
		j.ErrorMessage = msg
		j.FinishedAt = &now
		format = j.Format
	})
	if format != "" {
		s.metrics.ObserveExportJob(format, models.ExportStatusFailed)
	}
	s.logger.Warn("schedule export failed", zap.String("job_id", id), zap.String("error", msg))
}

func (s *ExportJobService) update(id string, mutate func(*models.ExportJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		mutate(job)
	}
}
