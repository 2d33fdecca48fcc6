package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-allotment-api/internal/models"
)

func TestRoomRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "type", "capacity", "gender", "tags"}).
		AddRow("B101", "Classroom B101", "classroom", 60, "any", "{projector}").
		AddRow("H1", "Hostel Block 1", "hostel", 4, "female", "{wifi,ac}")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, type, capacity, gender, tags FROM rooms ORDER BY position, id")).
		WillReturnRows(rows)

	rooms, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, pq.StringArray{"wifi", "ac"}, rooms[1].Tags)
	assert.True(t, rooms[1].HasTag("AC"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	room := &models.Room{ID: "B111", Name: "Lab 201", Type: "lab", Capacity: 30, Gender: "any", Tags: pq.StringArray{"computers"}}
	mock.ExpectExec("INSERT INTO rooms").
		WithArgs("B111", "Lab 201", "lab", 30, "any", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Upsert(context.Background(), room))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryEnsureCatalogSeedsEmptyTable(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	defaults := []models.Room{
		{ID: "A101", Name: "Lecture 1", Type: "lecture", Capacity: 60, Gender: "any"},
		{ID: "A102", Name: "Lecture 2", Type: "lecture", Capacity: 40, Gender: "any"},
	}
	mock.ExpectQuery("FROM rooms ORDER BY position").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "type", "capacity", "gender", "tags"}))
	mock.ExpectExec("INSERT INTO rooms").WithArgs("A101", "Lecture 1", "lecture", 60, "any", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO rooms").WithArgs("A102", "Lecture 2", "lecture", 40, "any", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rooms, err := repo.EnsureCatalog(context.Background(), defaults)
	require.NoError(t, err)
	assert.Len(t, rooms, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryEnsureCatalogKeepsStoredRooms(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectQuery("FROM rooms ORDER BY position").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "type", "capacity", "gender", "tags"}).
			AddRow("Z1", "Annex", "seminar", 12, "any", "{}"))

	rooms, err := repo.EnsureCatalog(context.Background(), models.DefaultCatalog())
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "Z1", rooms[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
