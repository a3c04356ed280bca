package model

import "time"

const (
	TodoStatusPending   = "pending"
	TodoStatusCompleted = "completed"
)

// Todo carries the shared ownership/visibility envelope (CreatedBy, Private,
// FamilyID) plus the to-do payload. Private items are visible only to their
// creator; shared items belong to a family and are visible to every member.
type Todo struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      string     `json:"status"`
	CreatedBy   int64      `json:"created_by"`
	FamilyID    *int64     `json:"family_id,omitempty"`
	Private     bool       `json:"private"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
