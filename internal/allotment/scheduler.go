package allotment

import (
	"errors"
	"sort"
	"time"

	"github.com/noah-isme/smart-allotment-api/internal/models"
)

// DefaultWeight scores requester categories missing from the weight table.
const DefaultWeight = 50

// Options configures one bulk allotment pass.
type Options struct {
	MinGapMinutes     int
	AllowOverCapacity bool
	Weights           map[string]int
	GenderScopedTypes []string
	Location          *time.Location
	// OnUnassigned, when set, receives the per-room rejections behind every
	// unassigned request.
	OnUnassigned func(req models.AllotmentRequest, reason string, rejections []Rejection)
}

type scoredRequest struct {
	req      models.AllotmentRequest
	interval Interval
	duration int
	score    int
	invalid  bool
}

// Run scores and orders the batch, then greedily places each request in the
// smallest conflict-free candidate room. A committed assignment is never
// revisited. The result depends only on the inputs.
func Run(rooms []models.Room, requests []models.AllotmentRequest, opts Options) models.AllotmentResult {
	result := models.AllotmentResult{
		Assignments: make([]models.Assignment, 0, len(requests)),
		Unassigned:  make([]models.UnassignedOutcome, 0),
	}

	ordered := order(requests, opts)
	filterOpts := FilterOptions{AllowOverCapacity: opts.AllowOverCapacity, GenderScopedTypes: opts.GenderScopedTypes}
	reserved := make(map[string][]Interval, len(rooms))

	for _, sr := range ordered {
		if sr.invalid {
			result.Unassigned = append(result.Unassigned, models.UnassignedOutcome{ReqID: sr.req.ID, Reason: ReasonInvalidTime})
			notify(opts, sr.req, ReasonInvalidTime, nil)
			continue
		}

		candidates, rejections := FilterCandidates(sr.req, rooms, filterOpts)
		roomID, ok := place(candidates, reserved, sr.interval, opts.MinGapMinutes)
		if ok {
			reserved[roomID] = append(reserved[roomID], sr.interval)
			result.Assignments = append(result.Assignments, models.Assignment{ReqID: sr.req.ID, RoomID: roomID})
			continue
		}

		reason := unassignedReason(len(candidates), rejections)
		result.Unassigned = append(result.Unassigned, models.UnassignedOutcome{ReqID: sr.req.ID, Reason: reason})
		notify(opts, sr.req, reason, rejections)
	}

	return result
}

// order computes the derived fields and returns the batch in processing
// order: score descending, duration ascending, attendees descending, input
// order on ties.
func order(requests []models.AllotmentRequest, opts Options) []scoredRequest {
	scored := make([]scoredRequest, len(requests))
	for i, req := range requests {
		sr := scoredRequest{req: req, score: weightFor(opts.Weights, req.UserType)}
		iv, err := ParseInterval(req.Date, req.Start, req.End, opts.Location)
		if errors.Is(err, ErrUnparseableTime) {
			sr.invalid = true
		} else {
			sr.interval = iv
			sr.duration = iv.DurationMinutes()
		}
		scored[i] = sr
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.duration != b.duration {
			return a.duration < b.duration
		}
		return a.req.Attendees > b.req.Attendees
	})
	return scored
}

func weightFor(weights map[string]int, category string) int {
	if w, ok := weights[category]; ok {
		return w
	}
	return DefaultWeight
}

func place(candidates []models.Room, reserved map[string][]Interval, iv Interval, gap int) (string, bool) {
	for _, room := range candidates {
		free := true
		for _, held := range reserved[room.ID] {
			if held.Overlaps(iv, gap) {
				free = false
				break
			}
		}
		if free {
			return room.ID, true
		}
	}
	return "", false
}

func unassignedReason(candidates int, rejections []Rejection) string {
	switch {
	case len(rejections) > 0:
		return rejections[0].Reason
	case candidates > 0:
		return ReasonTimeConflict
	default:
		return ReasonNoMatch
	}
}

func notify(opts Options, req models.AllotmentRequest, reason string, rejections []Rejection) {
	if opts.OnUnassigned != nil {
		opts.OnUnassigned(req, reason, rejections)
	}
}
