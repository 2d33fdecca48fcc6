package allotment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-allotment-api/internal/models"
)

func booking(t *testing.T, id, room, date, start, end string) models.Booking {
	t.Helper()
	iv, err := ParseInterval(date, start, end, nil)
	require.NoError(t, err)
	return models.Booking{ID: id, RoomID: room, Date: date, StartTime: start, EndTime: end, StartTS: int64(iv.Start), EndTS: int64(iv.End)}
}

func TestFindConflictReturnsFirstInLedgerOrder(t *testing.T) {
	ledger := []models.Booking{
		booking(t, "B-late", "B101", "2025-03-10", "10:00", "12:00"),
		booking(t, "B-early", "B101", "2025-03-10", "09:00", "10:30"),
		booking(t, "B-other", "B102", "2025-03-10", "09:00", "12:00"),
	}
	iv, err := ParseInterval("2025-03-10", "10:00", "11:00", nil)
	require.NoError(t, err)

	hit := FindConflict(ledger, "B101", iv)
	require.NotNil(t, hit)
	assert.Equal(t, "B-late", hit.ID)

	hit.UserName = "mutated"
	assert.Empty(t, ledger[0].UserName, "callers get a copy")

	touching, err := ParseInterval("2025-03-10", "12:00", "13:00", nil)
	require.NoError(t, err)
	assert.Nil(t, FindConflict(ledger, "B101", touching))
	assert.Nil(t, FindConflict(ledger, "A315", iv))
}

func TestFindVacantRoomsKeepsCatalogOrder(t *testing.T) {
	catalog := models.DefaultCatalog()
	ledger := []models.Booking{
		booking(t, "B1", "B102", "2025-03-10", "09:00", "10:00"),
		booking(t, "B2", "A315", "2025-03-10", "09:30", "11:00"),
	}
	iv, err := ParseInterval("2025-03-10", "09:00", "10:00", nil)
	require.NoError(t, err)

	vacant := FindVacantRooms(catalog, ledger, iv)
	ids := make([]string, 0, len(vacant))
	for _, r := range vacant {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"B101", "B111"}, ids)
	assert.Len(t, FindVacantRooms(catalog, nil, iv), len(catalog))
}
