package models

import "time"

// ExportStatus captures background export job lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusFinished   ExportStatus = "FINISHED"
	ExportStatusFailed     ExportStatus = "FAILED"
)

// ExportJob describes an asynchronous schedule export.
type ExportJob struct {
	ID           string       `json:"id"`
	Format       string       `json:"format"`
	RoomID       string       `json:"room_id,omitempty"`
	Status       ExportStatus `json:"status"`
	RequestedBy  string       `json:"requested_by,omitempty"`
	FilePath     string       `json:"-"`
	DownloadURL  string       `json:"download_url,omitempty"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
}
