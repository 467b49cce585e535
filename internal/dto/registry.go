package dto

// CreateSubjectRequest registers a subject. A known external key renames the existing subject.
type CreateSubjectRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	ExternalKey *int64 `json:"externalKey" validate:"omitempty,min=0"`
}

// RenameSubjectRequest changes a subject's display name.
type RenameSubjectRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

// ListSubjectsQuery captures list filters.
type ListSubjectsQuery struct {
	Search   string `form:"search" validate:"omitempty,max=120"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=200"`
}

// CreateSlotRequest registers a slot by order key.
type CreateSlotRequest struct {
	OrderKey *int `json:"orderKey" validate:"required,min=0"`
}

// UpdateParametersRequest moves either pointer. Empty fields are left untouched.
type UpdateParametersRequest struct {
	AvailabilityID string `json:"availabilityId" validate:"omitempty,max=64"`
	ScheduleID     string `json:"scheduleId" validate:"omitempty,max=64"`
}
