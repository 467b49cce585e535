package models

import "time"

// Subject is a person who can be assigned to slots. Subjects are renamed, never deleted.
type Subject struct {
	ID          ID        `db:"id" json:"id"`
	ExternalKey *int64    `db:"external_key" json:"external_key,omitempty"`
	Name        string    `db:"name" json:"name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	Search   string
	Page     int
	PageSize int
}

// SubjectRef is the id/name pair embedded in schedule and availability payloads.
type SubjectRef struct {
	ID   ID     `db:"subject_id" json:"id"`
	Name string `db:"subject_name" json:"name"`
}

// SubjectStats summarises one subject's history at a schedule node.
type SubjectStats struct {
	SubjectID     ID   `json:"subject_id"`
	ScheduleID    ID   `json:"schedule_id"`
	Count         int  `json:"count"`
	CountTotal    int  `json:"count_total"`
	LastScheduled *int `json:"last_scheduled"`
}
