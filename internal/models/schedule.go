package models

import "time"

// Schedule is one node of the append-only schedule chain. It owns only its own
// assignments; history is reached through ParentID. A zero ParentID marks a root.
type Schedule struct {
	ID        ID        `db:"id" json:"id"`
	ParentID  ID        `db:"parent_id" json:"parent_id"`
	Name      *string   `db:"name" json:"name,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Assignment places one subject into one slot of a schedule node.
type Assignment struct {
	ScheduleID ID `db:"schedule_id" json:"schedule_id"`
	SlotID     ID `db:"slot_id" json:"slot_id"`
	SubjectID  ID `db:"subject_id" json:"subject_id"`
}

// SlotSubject is a joined row of slot, order key and subject name.
type SlotSubject struct {
	SlotID      ID     `db:"slot_id" json:"slot_id"`
	OrderKey    int    `db:"order_key" json:"order_key"`
	SubjectID   ID     `db:"subject_id" json:"subject_id"`
	SubjectName string `db:"subject_name" json:"subject_name"`
}

// ScheduleDetail is a node together with its assignments keyed by slot.
type ScheduleDetail struct {
	Schedule
	Assignments map[ID][]SubjectRef `json:"assignments"`
}
