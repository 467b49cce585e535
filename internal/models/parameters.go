package models

import "time"

// Parameters is the singleton record pointing at the active availability set and
// the current schedule head. Zero ids mean unset.
type Parameters struct {
	Version        int       `db:"version" json:"version"`
	AvailabilityID ID        `db:"availability_id" json:"availability_id"`
	ScheduleID     ID        `db:"schedule_id" json:"schedule_id"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
