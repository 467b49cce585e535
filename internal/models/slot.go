package models

import "time"

// Slot is a recurring time slot. OrderKey is unique and defines display order.
type Slot struct {
	ID        ID        `db:"id" json:"id"`
	OrderKey  int       `db:"order_key" json:"order_key"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
