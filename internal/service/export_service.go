package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/smart-allotment-api/internal/models"
	"github.com/noah-isme/smart-allotment-api/pkg/export"
	"github.com/noah-isme/smart-allotment-api/pkg/storage"
)

type scheduleReader interface {
	ViewSchedule(ctx context.Context, roomID string) models.ScheduleView
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       export.Format
	ExpiresAt    time.Time
}

// ExportService renders ledger schedules and persists the files.
type ExportService struct {
	schedule scheduleReader
	storage  fileStorage
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
	now      func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(schedule scheduleReader, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		schedule: schedule,
		storage:  files,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// HasRoom reports whether roomID is in the ledger catalog.
func (s *ExportService) HasRoom(ctx context.Context, roomID string) bool {
	for _, r := range s.schedule.ViewSchedule(ctx, roomID).Rooms {
		if r.ID == roomID {
			return true
		}
	}
	return false
}

// Generate renders the schedule for the job and stores the document.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	format := export.Format(job.Format)
	renderer, err := export.ForFormat(format)
	if err != nil {
		return nil, err
	}

	payload, err := renderer.Render(s.buildDataset(ctx, job.RoomID))
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job, renderer.Extension()), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Debug("schedule export rendered", zap.String("job_id", job.ID), zap.String("path", relPath), zap.Int("bytes", len(payload)))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

var scheduleHeaders = []string{"Booking ID", "Room", "Room Name", "Date", "Start", "End", "Booked By", "Role"}

func (s *ExportService) buildDataset(ctx context.Context, roomID string) export.Dataset {
	view := s.schedule.ViewSchedule(ctx, roomID)
	names := make(map[string]string, len(view.Rooms))
	for _, r := range view.Rooms {
		names[r.ID] = r.Name
	}

	bookings := view.Schedule
	sort.SliceStable(bookings, func(i, j int) bool {
		if bookings[i].StartTS != bookings[j].StartTS {
			return bookings[i].StartTS < bookings[j].StartTS
		}
		return bookings[i].RoomID < bookings[j].RoomID
	})

	rows := make([]map[string]string, 0, len(bookings))
	for _, b := range bookings {
		rows = append(rows, map[string]string{
			"Booking ID": b.ID,
			"Room":       b.RoomID,
			"Room Name":  names[b.RoomID],
			"Date":       b.Date,
			"Start":      b.StartTime,
			"End":        b.EndTime,
			"Booked By":  b.UserName,
			"Role":       string(b.UserRole),
		})
	}

	title := "Room Schedule"
	if roomID != "" {
		title = fmt.Sprintf("Room Schedule %s", roomID)
	}
	return export.Dataset{Title: title, Headers: scheduleHeaders, Rows: rows}
}

func (s *ExportService) buildFilename(job *models.ExportJob, ext string) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	room := job.RoomID
	if room == "" {
		room = "all"
	}
	return fmt.Sprintf("schedule_%s_%s_%s%s", sanitizeFilename(room), timestamp, sanitizeFilename(job.ID), ext)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
