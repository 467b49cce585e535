package models

import "time"

// AvailabilitySet is an immutable snapshot of who can work which slot.
type AvailabilitySet struct {
	ID        ID        `db:"id" json:"id"`
	Name      *string   `db:"name" json:"name,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AvailabilityEntry marks one subject as eligible for one slot.
type AvailabilityEntry struct {
	AvailabilityID ID `db:"availability_id" json:"availability_id"`
	SlotID         ID `db:"slot_id" json:"slot_id"`
	SubjectID      ID `db:"subject_id" json:"subject_id"`
}

// RankedSlot is a slot with its eligible subjects, as ordered by flexibility.
type RankedSlot struct {
	SlotID   ID   `json:"slot_id"`
	OrderKey int  `json:"order_key"`
	Subjects []ID `json:"subject_ids"`
}
