package models

import (
	"strings"

	"github.com/lib/pq"
)

// GenderAny marks a room or request without a gender restriction.
const GenderAny = "any"

// Room is one bookable physical space in the catalog.
type Room struct {
	ID       string         `db:"id" json:"id" validate:"required"`
	Name     string         `db:"name" json:"name"`
	Type     string         `db:"type" json:"type"`
	Capacity int            `db:"capacity" json:"capacity" validate:"gt=0"`
	Gender   string         `db:"gender" json:"gender"`
	Tags     pq.StringArray `db:"tags" json:"tags"`
}

// HasTag reports whether the room carries tag, ignoring case.
func (r Room) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if strings.EqualFold(strings.TrimSpace(t), tag) {
			return true
		}
	}
	return false
}

// DefaultCatalog is the built-in room list served when the ledger is not
// backed by Postgres.
func DefaultCatalog() []Room {
	return []Room{
		{ID: "B101", Name: "Classroom B101", Type: "classroom", Capacity: 60, Gender: GenderAny, Tags: pq.StringArray{"projector"}},
		{ID: "B102", Name: "Classroom B102", Type: "classroom", Capacity: 60, Gender: GenderAny, Tags: pq.StringArray{"projector"}},
		{ID: "B111", Name: "Lab 201", Type: "lab", Capacity: 30, Gender: GenderAny, Tags: pq.StringArray{"computers", "projector"}},
		{ID: "A315", Name: "Seminar Hall", Type: "seminar", Capacity: 120, Gender: GenderAny, Tags: pq.StringArray{"projector", "audio"}},
	}
}
