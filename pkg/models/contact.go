package models

import "time"

// ContactStage values are workspace-defined; these are the built-in defaults.
const (
	StageNew       = "new"
	StageContacted = "contacted"
	StageEngaged   = "engaged"
	StageCustomer  = "customer"
	StageLost      = "lost"
)

type Contact struct {
	ID              string     `json:"id"                  validate:"required"`
	WorkspaceID     string     `json:"workspace_id"        validate:"required"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Email           string     `json:"email"               validate:"omitempty,email"`
	Phone           string     `json:"phone"`
	Stage           string     `json:"stage"`
	Source          string     `json:"source"`
	OptedOut        bool       `json:"opted_out"`
	AssignedToID    string     `json:"assigned_to_id,omitempty"`
	LastContactedAt *time.Time `json:"last_contacted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// FullName joins first and last name, tolerating either being empty.
func (c *Contact) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	default:
		return c.FirstName + " " + c.LastName
	}
}

type Category struct {
	ID          string `json:"id"           validate:"required"`
	WorkspaceID string `json:"workspace_id" validate:"required"`
	Name        string `json:"name"         validate:"required,min=1"`
}

// ContactCategory links a contact to a category. The pair is unique.
type ContactCategory struct {
	ContactID  string `json:"contact_id"`
	CategoryID string `json:"category_id"`
}

type Activity struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	ContactID   string    `json:"contact_id"`
	Kind        string    `json:"kind"` // note, stage_change, assignment
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}
