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

type slotService interface {
	List(ctx context.Context) ([]models.Slot, error)
	Get(ctx context.Context, rawID string) (*models.Slot, error)
	Register(ctx context.Context, req dto.CreateSlotRequest) (*models.Slot, error)
}

// SlotHandler handles slot catalog endpoints.
type SlotHandler struct {
	service slotService
}

// NewSlotHandler constructs a slot handler.
func NewSlotHandler(svc *service.SlotService) *SlotHandler {
	return &SlotHandler{service: svc}
}

// List godoc
// @Summary List slots by order key
// @Tags Slots
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /slots [get]
func (h *SlotHandler) List(c *gin.Context) {
	slots, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Get godoc
// @Summary Get slot by id
// @Tags Slots
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Router /slots/{id} [get]
func (h *SlotHandler) Get(c *gin.Context) {
	slot, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Create godoc
// @Summary Register slot
// @Description Registering an existing order key returns the existing slot.
// @Tags Slots
// @Accept json
// @Produce json
// @Param payload body dto.CreateSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Router /slots [post]
func (h *SlotHandler) Create(c *gin.Context) {
	var req dto.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot payload"))
		return
	}
	slot, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}
