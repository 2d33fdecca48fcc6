package allotment

import (
	"sort"
	"strings"

	"github.com/noah-isme/smart-allotment-api/internal/models"
)

// Reasons reported for unassigned requests.
const (
	ReasonTypeMismatch   = "type mismatch"
	ReasonGenderMismatch = "gender mismatch"
	ReasonMissingTags    = "missing required tags"
	ReasonCapacity       = "capacity too small"
	ReasonTimeConflict   = "time conflict or minimum gap violation"
	ReasonNoMatch        = "no room matched any criterion"
	ReasonInvalidTime    = "invalid date or time"
)

// DefaultGenderScopedTypes lists the room types where gender is enforced
// when nothing else is configured.
var DefaultGenderScopedTypes = []string{"hostel"}

// FilterOptions controls the hard constraints applied to candidates.
type FilterOptions struct {
	AllowOverCapacity bool
	GenderScopedTypes []string
}

// Rejection records why one room was dropped for a request.
type Rejection struct {
	RoomID string `json:"roomId"`
	Reason string `json:"reason"`
}

// FilterCandidates evaluates every room against the request and returns the
// passing rooms ordered by ascending capacity (catalog order on ties) plus
// the rejections in catalog order. Rules are checked as type, gender, tags,
// capacity; the first failing rule is the one recorded.
func FilterCandidates(req models.AllotmentRequest, rooms []models.Room, opts FilterOptions) ([]models.Room, []Rejection) {
	scoped := opts.GenderScopedTypes
	if scoped == nil {
		scoped = DefaultGenderScopedTypes
	}
	need := ParseTags(req.Need)
	prefType := strings.TrimSpace(req.PrefType)

	candidates := make([]models.Room, 0, len(rooms))
	var rejections []Rejection
	for _, room := range rooms {
		if reason := check(req, room, prefType, need, scoped, opts.AllowOverCapacity); reason != "" {
			rejections = append(rejections, Rejection{RoomID: room.ID, Reason: reason})
			continue
		}
		candidates = append(candidates, room)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Capacity < candidates[j].Capacity
	})
	return candidates, rejections
}

func check(req models.AllotmentRequest, room models.Room, prefType string, need, scoped []string, allowOver bool) string {
	if prefType != "" && room.Type != prefType {
		return ReasonTypeMismatch
	}
	if genderScoped(room.Type, scoped) && genderConflict(req.Gender, room.Gender) {
		return ReasonGenderMismatch
	}
	for _, tag := range need {
		if !room.HasTag(tag) {
			return ReasonMissingTags
		}
	}
	if !allowOver && room.Capacity < req.Attendees {
		return ReasonCapacity
	}
	return ""
}

// ParseTags splits a comma separated tag list, trimming, lower-casing and
// dropping empty tokens.
func ParseTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.ToLower(strings.TrimSpace(p)); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func genderScoped(roomType string, scoped []string) bool {
	for _, t := range scoped {
		if strings.EqualFold(t, roomType) {
			return true
		}
	}
	return false
}

func genderConflict(requested, room string) bool {
	if isAnyGender(requested) || isAnyGender(room) {
		return false
	}
	return !strings.EqualFold(strings.TrimSpace(requested), strings.TrimSpace(room))
}

func isAnyGender(g string) bool {
	g = strings.TrimSpace(g)
	return g == "" || strings.EqualFold(g, models.GenderAny)
}
