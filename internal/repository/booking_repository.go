package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/smart-allotment-api/internal/models"
)

const bookingColumns = "id, room_id, date, start_time, end_time, start_ts, end_ts, user_role, user_name, created_at"

// BookingRepository persists committed ledger entries. The in-memory ledger
// stays authoritative for conflict checks; this table mirrors it.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// ListAll returns bookings in insertion order.
func (r *BookingRepository) ListAll(ctx context.Context) ([]models.Booking, error) {
	var bookings []models.Booking
	query := fmt.Sprintf("SELECT %s FROM bookings ORDER BY seq", bookingColumns)
	if err := r.db.SelectContext(ctx, &bookings, query); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// Create stores a committed booking.
func (r *BookingRepository) Create(ctx context.Context, b *models.Booking) error {
	query := `INSERT INTO bookings (id, room_id, date, start_time, end_time, start_ts, end_ts, user_role, user_name, created_at)
		VALUES (:id, :room_id, :date, :start_time, :end_time, :start_ts, :end_ts, :user_role, :user_name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, b); err != nil {
		return fmt.Errorf("create booking %s: %w", b.ID, err)
	}
	return nil
}

// Delete removes a booking, reporting whether a row existed.
func (r *BookingRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM bookings WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("delete booking %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete booking %s rows affected: %w", id, err)
	}
	return affected > 0, nil
}

// DeleteAll clears the ledger table.
func (r *BookingRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM bookings"); err != nil {
		return fmt.Errorf("clear bookings: %w", err)
	}
	return nil
}
