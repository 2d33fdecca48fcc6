package models

import (
	"net/http"
	"strings"
	"time"
)

// Role is the requester role carried by ledger commands.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleFaculty Role = "faculty"
	RoleStudent Role = "student"
	RoleUnknown Role = "unknown"
)

// ParseRole normalises raw input; anything unrecognised becomes RoleUnknown.
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleFaculty:
		return RoleFaculty
	case RoleStudent:
		return RoleStudent
	default:
		return RoleUnknown
	}
}

// CanMutateLedger reports whether the role may book or cancel directly.
func (r Role) CanMutateLedger() bool {
	switch r {
	case RoleAdmin, RoleFaculty:
		return true
	case RoleStudent, RoleUnknown:
		return false
	default:
		return false
	}
}

// Booking is a committed ledger entry. StartTS and EndTS are epoch
// milliseconds.
type Booking struct {
	ID        string    `db:"id" json:"id"`
	RoomID    string    `db:"room_id" json:"room_id"`
	Date      string    `db:"date" json:"date"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	StartTS   int64     `db:"start_ts" json:"start_ts"`
	EndTS     int64     `db:"end_ts" json:"end_ts"`
	UserRole  Role      `db:"user_role" json:"user_role"`
	UserName  string    `db:"user_name" json:"user_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AdvisoryStatus tracks an advisory request. Only Pending is assigned today.
type AdvisoryStatus string

const AdvisoryPending AdvisoryStatus = "Pending"

// AdvisoryRequest is a logged booking intent that reserves nothing.
type AdvisoryRequest struct {
	ID        string         `db:"id" json:"id"`
	RoomID    string         `db:"room_id" json:"room_id"`
	UserName  string         `db:"user_name" json:"user_name"`
	Date      string         `db:"date" json:"date"`
	StartTime string         `db:"start_time" json:"start_time"`
	EndTime   string         `db:"end_time" json:"end_time"`
	Status    AdvisoryStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// OutcomeStatus is the result tag of a ledger command.
type OutcomeStatus string

const (
	OutcomeSuccess         OutcomeStatus = "success"
	OutcomeError           OutcomeStatus = "error"
	OutcomeConflict        OutcomeStatus = "conflict"
	OutcomeConflictRequest OutcomeStatus = "conflict_request"
)

// HTTPStatus maps an outcome onto its response code. created applies to
// successful commands that store something new.
func (s OutcomeStatus) HTTPStatus(created bool) int {
	switch s {
	case OutcomeSuccess:
		if created {
			return http.StatusCreated
		}
		return http.StatusOK
	case OutcomeConflict:
		return http.StatusConflict
	case OutcomeConflictRequest:
		return http.StatusAccepted
	case OutcomeError:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// LedgerOutcome is returned by every ledger command that did not fail outright.
type LedgerOutcome struct {
	Status             OutcomeStatus    `json:"status"`
	Message            string           `json:"message"`
	Booking            *Booking         `json:"booking,omitempty"`
	Request            *AdvisoryRequest `json:"request,omitempty"`
	ConflictingBooking *Booking         `json:"conflicting_booking,omitempty"`
	VacantSuggestions  []Room           `json:"vacant_suggestions,omitempty"`
}

// ScheduleView is the read model returned by the schedule endpoint.
type ScheduleView struct {
	Schedule []Booking `json:"schedule"`
	Rooms    []Room    `json:"rooms"`
}
