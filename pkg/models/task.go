package models

import "time"

// TaskColumn is a board column tasks are filed into. Exactly one column per
// workspace should carry IsDefault; the store guards creation of it.
type TaskColumn struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
	Position    int    `json:"position"`
	IsDefault   bool   `json:"is_default"`
}

type Task struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	ColumnID    string    `json:"column_id"`
	Number      int       `json:"number"` // per-workspace sequence, see persistence.NextTaskNumber
	Title       string    `json:"title"  validate:"required,min=1"`
	Description string    `json:"description"`
	ContactID   string    `json:"contact_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
