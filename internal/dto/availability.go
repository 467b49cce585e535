package dto

import "github.com/noah-isme/shift-rota-api/internal/models"

// AvailabilityEntryInput lists the subjects eligible for one slot.
type AvailabilityEntryInput struct {
	SlotID     string   `json:"slotId" validate:"required,max=64"`
	SubjectIDs []string `json:"subjectIds" validate:"required,min=1,dive,required,max=64"`
}

// CreateAvailabilityRequest imports a normalized availability snapshot.
type CreateAvailabilityRequest struct {
	Name     string                   `json:"name" validate:"omitempty,max=120"`
	Entries  []AvailabilityEntryInput `json:"entries" validate:"required,min=1,dive"`
	Activate bool                     `json:"activate"`
}

// AvailabilitySlot is one slot of an availability detail.
type AvailabilitySlot struct {
	SlotID   models.ID           `json:"slotId"`
	OrderKey int                 `json:"orderKey"`
	Subjects []models.SubjectRef `json:"subjects"`
}

// AvailabilityResponse is an availability set with entries grouped by slot.
type AvailabilityResponse struct {
	ID        models.ID          `json:"id"`
	Name      *string            `json:"name"`
	CreatedAt string             `json:"createdAt"`
	Active    bool               `json:"active"`
	Slots     []AvailabilitySlot `json:"slots"`
}
