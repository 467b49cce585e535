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

type scheduleService interface {
	List(ctx context.Context) ([]dto.ScheduleSummary, error)
	Get(ctx context.Context, rawID string) (*dto.ScheduleResponse, error)
	Export(ctx context.Context, rawID, format string) (*dto.ExportResult, error)
	Revert(ctx context.Context, req dto.RevertScheduleRequest) (*models.Parameters, error)
	Ancestry(ctx context.Context, rawID string) (*dto.ScheduleAncestryResponse, error)
	Stats(ctx context.Context, rawScheduleID, rawSubjectID string) (*dto.SubjectStatsResponse, error)
}

// ScheduleHandler serves schedule nodes and pointer reverts.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// List godoc
// @Summary List schedule nodes newest first
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	schedules, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// Get godoc
// @Summary Get schedule node with assignments
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Export godoc
// @Summary Export schedule grid
// @Tags Schedules
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Schedule ID"
// @Param format query string false "csv, sheets-export or pdf"
// @Success 200 {file} file
// @Router /schedules/{id}/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	result, err := h.service.Export(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", string(dto.ExportFormatCSV)))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.ContentType, result.Filename, result.Body)
}

// Revert godoc
// @Summary Move the current schedule pointer
// @Description Target is an existing schedule id, or ROOT to clear the pointer.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.RevertScheduleRequest true "Revert payload"
// @Success 200 {object} response.Envelope
// @Router /schedules/revert [post]
func (h *ScheduleHandler) Revert(c *gin.Context) {
	var req dto.RevertScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid revert payload"))
		return
	}
	params, err := h.service.Revert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, params, nil)
}

// Ancestry godoc
// @Summary List a node's ancestors back to the root
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /schedules/{id}/ancestry [get]
func (h *ScheduleHandler) Ancestry(c *gin.Context) {
	ancestry, err := h.service.Ancestry(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ancestry, nil)
}

// Stats godoc
// @Summary Subject history at a node
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Param subjectId path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/subjects/{subjectId}/stats [get]
func (h *ScheduleHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), c.Param("id"), c.Param("subjectId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
