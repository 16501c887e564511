package model

import "time"

// Strategy is a coping or de-escalation approach that has worked for a
// child. Inactive strategies are kept for history but excluded from shares.
type Strategy struct {
	ID          int64     `json:"id"`
	ChildID     int64     `json:"child_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
