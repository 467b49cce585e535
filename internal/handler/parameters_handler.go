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

type parametersService interface {
	Get(ctx context.Context) (*models.Parameters, error)
	Update(ctx context.Context, req dto.UpdateParametersRequest) (*models.Parameters, error)
}

// ParametersHandler exposes the active availability and current schedule pointers.
type ParametersHandler struct {
	service parametersService
}

// NewParametersHandler constructs the handler.
func NewParametersHandler(svc *service.ParametersService) *ParametersHandler {
	return &ParametersHandler{service: svc}
}

// Get godoc
// @Summary Get scheduler parameters
// @Tags Parameters
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /parameters [get]
func (h *ParametersHandler) Get(c *gin.Context) {
	params, err := h.service.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, params, nil)
}

// Update godoc
// @Summary Move the availability or schedule pointer
// @Tags Parameters
// @Accept json
// @Produce json
// @Param payload body dto.UpdateParametersRequest true "Pointer targets"
// @Success 200 {object} response.Envelope
// @Router /parameters [put]
func (h *ParametersHandler) Update(c *gin.Context) {
	var req dto.UpdateParametersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid parameters payload"))
		return
	}
	params, err := h.service.Update(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, params, nil)
}
