package dto

// CreateExportRequest asks for an asynchronous schedule export.
type CreateExportRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf"`
	RoomID string `json:"room_id"`
}
