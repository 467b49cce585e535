package dto

import "github.com/noah-isme/shift-rota-api/internal/models"

// GenerateScheduleRequest asks for a new schedule node. Parent overrides the current head.
type GenerateScheduleRequest struct {
	Parent string `json:"parent" validate:"omitempty,max=64"`
	Name   string `json:"name" validate:"omitempty,max=120"`
}

// GenerateScheduleResponse describes the node written by a generator run.
type GenerateScheduleResponse struct {
	ID     models.ID `json:"id"`
	Parent models.ID `json:"parent"`
	Name   *string   `json:"name"`
}

// RevertScheduleRequest moves the current head. Target is a schedule id or ROOT.
type RevertScheduleRequest struct {
	Target string `json:"target" validate:"required,max=64"`
}

// ScheduleSummary is a list entry for schedule nodes.
type ScheduleSummary struct {
	ID        models.ID `json:"id"`
	Parent    models.ID `json:"parent"`
	Name      *string   `json:"name"`
	CreatedAt string    `json:"createdAt"`
	Current   bool      `json:"current"`
}

// ScheduleResponse is a node with its assignments grouped by slot.
type ScheduleResponse struct {
	ID          models.ID                        `json:"id"`
	Parent      models.ID                        `json:"parent"`
	Name        *string                          `json:"name"`
	Assignments map[models.ID][]models.SubjectRef `json:"assignments"`
}

// ScheduleAncestryResponse lists node ids from a node back to its root.
type ScheduleAncestryResponse struct {
	ID        models.ID   `json:"id"`
	Ancestors []models.ID `json:"ancestors"`
}

// SubjectStatsResponse reports a subject's history at a node.
type SubjectStatsResponse struct {
	ScheduleID    models.ID `json:"scheduleId"`
	SubjectID     models.ID `json:"subjectId"`
	Count         int       `json:"count"`
	CountTotal    int       `json:"countTotal"`
	LastScheduled *int      `json:"lastScheduled"`
}

// ExportFormat names a supported export rendering.
type ExportFormat string

const (
	ExportFormatCSV          ExportFormat = "csv"
	ExportFormatSheetsExport ExportFormat = "sheets-export"
	ExportFormatPDF          ExportFormat = "pdf"
)

// ExportResult is a rendered export ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}
