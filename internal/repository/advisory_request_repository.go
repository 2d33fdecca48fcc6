package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/smart-allotment-api/internal/models"
)

// AdvisoryRequestRepository stores the advisory request queue.
type AdvisoryRequestRepository struct {
	db *sqlx.DB
}

// NewAdvisoryRequestRepository constructs an AdvisoryRequestRepository.
func NewAdvisoryRequestRepository(db *sqlx.DB) *AdvisoryRequestRepository {
	return &AdvisoryRequestRepository{db: db}
}

// Create appends a request to the queue.
func (r *AdvisoryRequestRepository) Create(ctx context.Context, req *models.AdvisoryRequest) error {
	query := `INSERT INTO advisory_requests (id, room_id, user_name, date, start_time, end_time, status, created_at)
		VALUES (:id, :room_id, :user_name, :date, :start_time, :end_time, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create advisory request %s: %w", req.ID, err)
	}
	return nil
}

// List returns queued requests oldest first.
func (r *AdvisoryRequestRepository) List(ctx context.Context) ([]models.AdvisoryRequest, error) {
	var requests []models.AdvisoryRequest
	query := "SELECT id, room_id, user_name, date, start_time, end_time, status, created_at FROM advisory_requests ORDER BY created_at, id"
	if err := r.db.SelectContext(ctx, &requests, query); err != nil {
		return nil, fmt.Errorf("list advisory requests: %w", err)
	}
	return requests, nil
}
