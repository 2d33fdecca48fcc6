package models

// AllotmentRequest is one entry of a bulk allotment batch.
type AllotmentRequest struct {
	ID        string `json:"id" validate:"required"`
	Date      string `json:"date"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Attendees int    `json:"attendees" validate:"gt=0"`
	UserType  string `json:"userType"`
	PrefType  string `json:"prefType,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Need      string `json:"need,omitempty"`
}

// Assignment pairs a request with the room it was given.
type Assignment struct {
	ReqID  string `json:"reqId"`
	RoomID string `json:"roomId"`
}

// UnassignedOutcome explains why a request got no room.
type UnassignedOutcome struct {
	ReqID  string `json:"reqId"`
	Reason string `json:"reason"`
}

// AllotmentResult is the output of one bulk allotment pass.
type AllotmentResult struct {
	Assignments []Assignment        `json:"assignments"`
	Unassigned  []UnassignedOutcome `json:"unassigned"`
}
