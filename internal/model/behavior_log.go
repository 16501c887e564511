package model

import "time"

// BehaviorLog is a single observed incident: what happened, what led up to
// it, and how intense it was on a 1-5 scale.
type BehaviorLog struct {
	ID         int64     `json:"id"`
	ChildID    int64     `json:"child_id"`
	Behavior   string    `json:"behavior"`
	Antecedent string    `json:"antecedent"`
	Intensity  int       `json:"intensity"`
	Notes      string    `json:"notes"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}
