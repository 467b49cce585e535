package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shift-rota-api/internal/dto"
	"github.com/noah-isme/shift-rota-api/internal/models"
	"github.com/noah-isme/shift-rota-api/internal/service"
	appErrors "github.com/noah-isme/shift-rota-api/pkg/errors"
	"github.com/noah-isme/shift-rota-api/pkg/response"
)

type availabilityService interface {
	List(ctx context.Context) ([]models.AvailabilitySet, error)
	Get(ctx context.Context, rawID string) (*dto.AvailabilityResponse, error)
	Ranking(ctx context.Context, rawID string) ([]models.RankedSlot, error)
	Create(ctx context.Context, req dto.CreateAvailabilityRequest) (*dto.AvailabilityResponse, error)
}

// AvailabilityHandler serves availability snapshots.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(svc *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// List godoc
// @Summary List availability sets
// @Tags Availability
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /availabilities [get]
func (h *AvailabilityHandler) List(c *gin.Context) {
	sets, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sets, nil)
}

// Get godoc
// @Summary Get availability set with entries
// @Tags Availability
// @Produce json
// @Param id path string true "Availability ID"
// @Success 200 {object} response.Envelope
// @Router /availabilities/{id} [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Ranking godoc
// @Summary Slots ordered least-flexible first
// @Tags Availability
// @Produce json
// @Param id path string true "Availability ID"
// @Success 200 {object} response.Envelope
// @Router /availabilities/{id}/ranking [get]
func (h *AvailabilityHandler) Ranking(c *gin.Context) {
	ranked, err := h.service.Ranking(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ranked, nil)
}

// Create godoc
// @Summary Import availability snapshot
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.CreateAvailabilityRequest true "Availability payload"
// @Success 201 {object} response.Envelope
// @Router /availabilities [post]
func (h *AvailabilityHandler) Create(c *gin.Context) {
	var req dto.CreateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}
	detail, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}
