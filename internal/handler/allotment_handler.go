package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smart-allotment-api/internal/dto"
	"github.com/noah-isme/smart-allotment-api/internal/middleware"
	"github.com/noah-isme/smart-allotment-api/internal/models"
	appErrors "github.com/noah-isme/smart-allotment-api/pkg/errors"
	"github.com/noah-isme/smart-allotment-api/pkg/response"
)

type allotmentRunner interface {
	Run(ctx context.Context, req dto.RunAllotmentRequest) (*models.AllotmentResult, bool, error)
	PurgeCache(ctx context.Context) error
}

// AllotmentHandler exposes the bulk allotment engine.
type AllotmentHandler struct {
	service allotmentRunner
}

// NewAllotmentHandler constructs the handler.
func NewAllotmentHandler(service allotmentRunner) *AllotmentHandler {
	return &AllotmentHandler{service: service}
}

// Run godoc
// @Summary Run a bulk room allotment
// @Tags Allotment
// @Accept json
// @Produce json
// @Param payload body dto.RunAllotmentRequest true "Rooms, requests and constraints"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /run-allotment [post]
func (h *AllotmentHandler) Run(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var req dto.RunAllotmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid allotment payload"))
		return
	}
	result, cacheHit, err := h.service.Run(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}

// PurgeCache godoc
// @Summary Drop cached allotment results
// @Tags Allotment
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /run-allotment/cache [delete]
func (h *AllotmentHandler) PurgeCache(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	if err := h.service.PurgeCache(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"purged": true})
}
