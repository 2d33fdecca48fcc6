package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smart-allotment-api/internal/dto"
	"github.com/noah-isme/smart-allotment-api/internal/models"
	appErrors "github.com/noah-isme/smart-allotment-api/pkg/errors"
	"github.com/noah-isme/smart-allotment-api/pkg/response"
)

type ledgerService interface {
	BookSlot(ctx context.Context, req dto.BookSlotRequest) (*models.LedgerOutcome, error)
	CancelSlot(ctx context.Context, bookingID, role string) (*models.LedgerOutcome, error)
	SubmitRequest(ctx context.Context, req dto.SubmitRequestRequest) (*models.LedgerOutcome, error)
	ViewSchedule(ctx context.Context, roomID string) models.ScheduleView
	VacantRooms(ctx context.Context, q dto.VacantRoomsQuery) ([]models.Room, error)
	Requests(ctx context.Context) []models.AdvisoryRequest
	Clear(ctx context.Context, role string) (*models.LedgerOutcome, error)
}

// LedgerHandler exposes the incremental booking ledger.
type LedgerHandler struct {
	service ledgerService
}

// NewLedgerHandler constructs the handler.
func NewLedgerHandler(service ledgerService) *LedgerHandler {
	return &LedgerHandler{service: service}
}

// BookSlot godoc
// @Summary Book a room directly (admin or faculty)
// @Tags Ledger
// @Accept json
// @Produce json
// @Param payload body dto.BookSlotRequest true "Booking"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings [post]
func (h *LedgerHandler) BookSlot(c *gin.Context) {
	var req dto.BookSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid booking payload"))
		return
	}
	req.UserRole, req.UserName = callerIdentity(c, req.UserRole, req.UserName)
	outcome, err := h.service.BookSlot(c.Request.Context(), req)
	writeOutcome(c, outcome, err, true)
}

// CancelSlot godoc
// @Summary Cancel a booking (admin or faculty)
// @Tags Ledger
// @Produce json
// @Param id path string true "Booking ID"
// @Param role query string false "Caller role when no token is sent"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bookings/{id} [delete]
func (h *LedgerHandler) CancelSlot(c *gin.Context) {
	role, _ := callerIdentity(c, c.Query("role"), "")
	outcome, err := h.service.CancelSlot(c.Request.Context(), c.Param("id"), role)
	writeOutcome(c, outcome, err, false)
}

// Clear godoc
// @Summary Remove every booking (admin)
// @Tags Ledger
// @Produce json
// @Param role query string false "Caller role when no token is sent"
// @Success 200 {object} response.Envelope
// @Router /bookings [delete]
func (h *LedgerHandler) Clear(c *gin.Context) {
	role, _ := callerIdentity(c, c.Query("role"), "")
	outcome, err := h.service.Clear(c.Request.Context(), role)
	writeOutcome(c, outcome, err, false)
}

// SubmitRequest godoc
// @Summary Queue an advisory booking request
// @Tags Ledger
// @Accept json
// @Produce json
// @Param payload body dto.SubmitRequestRequest true "Request"
// @Success 201 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /requests [post]
func (h *LedgerHandler) SubmitRequest(c *gin.Context) {
	var req dto.SubmitRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid request payload"))
		return
	}
	_, req.UserName = callerIdentity(c, "", req.UserName)
	outcome, err := h.service.SubmitRequest(c.Request.Context(), req)
	writeOutcome(c, outcome, err, true)
}

// Requests godoc
// @Summary List queued advisory requests
// @Tags Ledger
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *LedgerHandler) Requests(c *gin.Context) {
	requests := h.service.Requests(c.Request.Context())
	response.JSON(c, http.StatusOK, requests, map[string]interface{}{"count": len(requests)})
}

// Schedule godoc
// @Summary View bookings with the room catalog
// @Tags Ledger
// @Produce json
// @Param roomId query string false "Restrict to one room"
// @Success 200 {object} response.Envelope
// @Router /schedule [get]
func (h *LedgerHandler) Schedule(c *gin.Context) {
	view := h.service.ViewSchedule(c.Request.Context(), strings.TrimSpace(c.Query("roomId")))
	response.JSON(c, http.StatusOK, view)
}

// VacantRooms godoc
// @Summary Rooms free for a whole window
// @Tags Ledger
// @Produce json
// @Param date query string true "YYYY-MM-DD"
// @Param start query string true "HH:MM"
// @Param end query string true "HH:MM"
// @Success 200 {object} response.Envelope
// @Router /rooms/vacant [get]
func (h *LedgerHandler) VacantRooms(c *gin.Context) {
	var q dto.VacantRoomsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid vacancy query"))
		return
	}
	rooms, err := h.service.VacantRooms(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms)
}

func writeOutcome(c *gin.Context, outcome *models.LedgerOutcome, err error, created bool) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, outcome.Status.HTTPStatus(created), outcome)
}
