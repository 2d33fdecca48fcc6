package allotment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-allotment-api/internal/models"
)

func request(id string, attendees int, userType, start, end string) models.AllotmentRequest {
	return models.AllotmentRequest{ID: id, Date: "2025-03-10", Start: start, End: end, Attendees: attendees, UserType: userType}
}

func TestRunSmallestFittingRoom(t *testing.T) {
	rooms := []models.Room{{ID: "R1", Capacity: 2}, {ID: "R2", Capacity: 10}}
	requests := []models.AllotmentRequest{
		request("Q1", 8, "faculty", "09:00", "10:00"),
		request("Q2", 1, "student", "09:00", "10:00"),
	}

	result := Run(rooms, requests, Options{Weights: map[string]int{"faculty": 100, "student": 50}})

	assert.Equal(t, []models.Assignment{{ReqID: "Q1", RoomID: "R2"}, {ReqID: "Q2", RoomID: "R1"}}, result.Assignments)
	assert.Empty(t, result.Unassigned)
	assert.NotNil(t, result.Unassigned)
}

func TestRunLowerPriorityLosesOnConflict(t *testing.T) {
	rooms := []models.Room{{ID: "A315", Capacity: 100}}
	requests := []models.AllotmentRequest{
		request("student-club", 20, "student", "09:30", "10:30"),
		request("faculty-seminar", 40, "faculty", "09:00", "10:00"),
	}

	result := Run(rooms, requests, Options{Weights: map[string]int{"faculty": 100, "student": 50}})

	assert.Equal(t, []models.Assignment{{ReqID: "faculty-seminar", RoomID: "A315"}}, result.Assignments)
	assert.Equal(t, []models.UnassignedOutcome{{ReqID: "student-club", Reason: ReasonTimeConflict}}, result.Unassigned)
}

func TestRunMinimumGap(t *testing.T) {
	rooms := []models.Room{{ID: "R", Capacity: 10}}
	requests := []models.AllotmentRequest{
		request("first", 5, "faculty", "09:00", "10:00"),
		request("second", 5, "student", "10:00", "11:00"),
	}
	weights := map[string]int{"faculty": 100}

	back2back := Run(rooms, requests, Options{Weights: weights})
	assert.Len(t, back2back.Assignments, 2)

	gapped := Run(rooms, requests, Options{Weights: weights, MinGapMinutes: 15})
	assert.Equal(t, []models.Assignment{{ReqID: "first", RoomID: "R"}}, gapped.Assignments)
	assert.Equal(t, ReasonTimeConflict, gapped.Unassigned[0].Reason)
}

func TestRunProcessingOrder(t *testing.T) {
	rooms := []models.Room{{ID: "hall", Capacity: 500}}
	// Distinct dates so nothing conflicts; the assignment order exposes the
	// sort: score desc, duration asc, attendees desc, input order on ties.
	requests := []models.AllotmentRequest{
		{ID: "long", Date: "2025-03-10", Start: "09:00", End: "11:00", Attendees: 50, UserType: "staff"},
		{ID: "short-small", Date: "2025-03-11", Start: "09:00", End: "10:00", Attendees: 10, UserType: "staff"},
		{ID: "short-big", Date: "2025-03-12", Start: "09:00", End: "10:00", Attendees: 20, UserType: "staff"},
		{ID: "short-small-twin", Date: "2025-03-13", Start: "09:00", End: "10:00", Attendees: 10, UserType: "staff"},
		{ID: "vip", Date: "2025-03-14", Start: "09:00", End: "17:00", Attendees: 1, UserType: "admin"},
	}

	result := Run(rooms, requests, Options{Weights: map[string]int{"admin": 100}})

	order := make([]string, 0, len(result.Assignments))
	for _, a := range result.Assignments {
		order = append(order, a.ReqID)
	}
	assert.Equal(t, []string{"vip", "short-big", "short-small", "short-small-twin", "long"}, order)
}

func TestRunReasonPrecedence(t *testing.T) {
	req := models.AllotmentRequest{ID: "Q", Date: "2025-03-10", Start: "09:00", End: "10:00", Attendees: 10, PrefType: "classroom"}

	t.Run("first filter reason wins", func(t *testing.T) {
		rooms := []models.Room{{ID: "lab", Type: "lab", Capacity: 100}, {ID: "tiny", Type: "classroom", Capacity: 5}}
		result := Run(rooms, []models.AllotmentRequest{req}, Options{})
		assert.Equal(t, ReasonTypeMismatch, result.Unassigned[0].Reason)
	})

	t.Run("filter reason beats conflict", func(t *testing.T) {
		rooms := []models.Room{{ID: "lab", Type: "lab", Capacity: 100}, {ID: "C1", Type: "classroom", Capacity: 50}}
		holder := req
		holder.ID = "holder"
		holder.UserType = "faculty"
		result := Run(rooms, []models.AllotmentRequest{holder, req}, Options{Weights: map[string]int{"faculty": 100}})
		assert.Equal(t, []models.UnassignedOutcome{{ReqID: "Q", Reason: ReasonTypeMismatch}}, result.Unassigned)
	})

	t.Run("empty catalog", func(t *testing.T) {
		result := Run(nil, []models.AllotmentRequest{req}, Options{})
		assert.Equal(t, ReasonNoMatch, result.Unassigned[0].Reason)
	})
}

func TestRunInvalidTimeIsUnassigned(t *testing.T) {
	rooms := []models.Room{{ID: "R", Capacity: 10}}
	bad := request("bad", 1, "student", "9h", "10:00")
	good := request("good", 1, "student", "09:00", "10:00")

	var notified []string
	result := Run(rooms, []models.AllotmentRequest{bad, good}, Options{
		OnUnassigned: func(req models.AllotmentRequest, reason string, _ []Rejection) {
			notified = append(notified, req.ID+":"+reason)
		},
	})

	assert.Equal(t, []models.Assignment{{ReqID: "good", RoomID: "R"}}, result.Assignments)
	assert.Equal(t, []models.UnassignedOutcome{{ReqID: "bad", Reason: ReasonInvalidTime}}, result.Unassigned)
	assert.Equal(t, []string{"bad:" + ReasonInvalidTime}, notified)
}

func TestRunIsDeterministic(t *testing.T) {
	rooms := []models.Room{
		{ID: "B101", Type: "classroom", Capacity: 40},
		{ID: "B102", Type: "classroom", Capacity: 40},
		{ID: "H1", Type: "hostel", Gender: "female", Capacity: 4},
		{ID: "L1", Type: "lab", Capacity: 25, Tags: []string{"computers"}},
	}
	var requests []models.AllotmentRequest
	for i, ut := range []string{"student", "faculty", "admin", "guest"} {
		for j, slot := range [][2]string{{"09:00", "10:00"}, {"09:30", "11:00"}, {"10:00", "10:30"}} {
			req := models.AllotmentRequest{
				ID:        ut + "-" + slot[0],
				Date:      "2025-03-10",
				Start:     slot[0],
				End:       slot[1],
				Attendees: 5 + i*7 + j,
				UserType:  ut,
			}
			if j == 2 {
				req.Need = "computers"
			}
			requests = append(requests, req)
		}
	}
	opts := Options{Weights: map[string]int{"admin": 100, "faculty": 80}, MinGapMinutes: 5}

	first := Run(rooms, requests, opts)
	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := json.Marshal(Run(rooms, requests, opts))
		require.NoError(t, err)
		require.Equal(t, string(firstJSON), string(again))
	}
	assert.Equal(t, len(requests), len(first.Assignments)+len(first.Unassigned))
}

func TestRunNeverDoubleBooksWithinBatch(t *testing.T) {
	rooms := []models.Room{{ID: "R1", Capacity: 10}, {ID: "R2", Capacity: 20}}
	var requests []models.AllotmentRequest
	for i, slot := range [][2]string{{"08:00", "09:00"}, {"08:30", "09:30"}, {"09:00", "10:00"}, {"08:15", "08:45"}, {"09:15", "09:45"}} {
		requests = append(requests, request(string(rune('a'+i)), 5, "student", slot[0], slot[1]))
	}
	byID := make(map[string]models.AllotmentRequest)
	for _, r := range requests {
		byID[r.ID] = r
	}

	result := Run(rooms, requests, Options{})

	perRoom := make(map[string][]Interval)
	for _, a := range result.Assignments {
		r := byID[a.ReqID]
		iv, err := ParseInterval(r.Date, r.Start, r.End, nil)
		require.NoError(t, err)
		for _, held := range perRoom[a.RoomID] {
			require.False(t, held.Overlaps(iv, 0), "room %s double booked", a.RoomID)
		}
		perRoom[a.RoomID] = append(perRoom[a.RoomID], iv)
	}
}
