package dto

// BookSlotRequest books a room directly. Role and name are overridden by
// bearer token claims when present.
type BookSlotRequest struct {
	RoomID    string `json:"room_id" validate:"required"`
	UserRole  string `json:"user_role"`
	UserName  string `json:"user_name" validate:"required"`
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// SubmitRequestRequest logs an advisory booking intent.
type SubmitRequestRequest struct {
	RoomID    string `json:"room_id" validate:"required"`
	UserName  string `json:"user_name" validate:"required"`
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// VacantRoomsQuery selects the window for a vacancy search.
type VacantRoomsQuery struct {
	Date  string `form:"date" validate:"required"`
	Start string `form:"start" validate:"required"`
	End   string `form:"end" validate:"required"`
}
