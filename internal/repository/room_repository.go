package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/smart-allotment-api/internal/models"
)

const roomColumns = "id, name, type, capacity, gender, tags"

// RoomRepository reads the room catalog served to the booking ledger.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs a RoomRepository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// List returns every room in catalog order.
func (r *RoomRepository) List(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	query := fmt.Sprintf("SELECT %s FROM rooms ORDER BY position, id", roomColumns)
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// Upsert inserts or updates a catalog entry, appending new rooms at the end.
func (r *RoomRepository) Upsert(ctx context.Context, room *models.Room) error {
	query := `INSERT INTO rooms (id, name, type, capacity, gender, tags, position)
		VALUES ($1, $2, $3, $4, $5, $6, (SELECT COALESCE(MAX(position), 0) + 1 FROM rooms))
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, type = EXCLUDED.type,
			capacity = EXCLUDED.capacity, gender = EXCLUDED.gender, tags = EXCLUDED.tags`
	if _, err := r.db.ExecContext(ctx, query, room.ID, room.Name, room.Type, room.Capacity, room.Gender, room.Tags); err != nil {
		return fmt.Errorf("upsert room %s: %w", room.ID, err)
	}
	return nil
}

// EnsureCatalog returns the stored catalog, first writing defaults when the
// table is empty.
func (r *RoomRepository) EnsureCatalog(ctx context.Context, defaults []models.Room) ([]models.Room, error) {
	rooms, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(rooms) > 0 {
		return rooms, nil
	}
	for i := range defaults {
		if err := r.Upsert(ctx, &defaults[i]); err != nil {
			return nil, err
		}
	}
	return defaults, nil
}
