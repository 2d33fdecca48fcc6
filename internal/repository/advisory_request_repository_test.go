package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-allotment-api/internal/models"
)

func TestAdvisoryRequestRepositoryCreateAndList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAdvisoryRequestRepository(db)

	mock.ExpectExec("INSERT INTO advisory_requests").
		WithArgs("R-1", "A315", "Priya", "2025-03-10", "09:00", "10:00", models.AdvisoryPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Create(context.Background(), &models.AdvisoryRequest{
		ID: "R-1", RoomID: "A315", UserName: "Priya", Date: "2025-03-10", StartTime: "09:00", EndTime: "10:00",
		Status: models.AdvisoryPending, CreatedAt: time.Now(),
	}))

	rows := sqlmock.NewRows([]string{"id", "room_id", "user_name", "date", "start_time", "end_time", "status", "created_at"}).
		AddRow("R-1", "A315", "Priya", "2025-03-10", "09:00", "10:00", "Pending", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM advisory_requests ORDER BY created_at, id")).WillReturnRows(rows)

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.AdvisoryPending, list[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
