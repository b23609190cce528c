// Package persistence provides the data storage abstraction layer for the
// CRM records executors and the enrollment engine read and write.
package persistence

import (
	"context"
	"time"

	"github.com/cadenzahq/cadenza/pkg/models"
)

// Persistence is the store contract. Executors read only the fields an
// action needs and write narrowly scoped updates, so mutations are exposed
// as dedicated methods instead of whole-record saves wherever possible.
type Persistence interface {
	// Contacts.
	ContactByID(ctx context.Context, id string) (*models.Contact, error)
	ContactsByWorkspace(ctx context.Context, workspaceID string) ([]*models.Contact, error)
	SaveContact(ctx context.Context, contact *models.Contact) error
	UpdateContactStage(ctx context.Context, contactID, stage string) error
	UpdateContactAssignee(ctx context.Context, contactID, userID string) error
	TouchContactLastContacted(ctx context.Context, contactID string, at time.Time) error
	// IsContactOptedOut re-reads opt-out state from the store, bypassing any
	// cached contact snapshot. Send executors call it at send time.
	IsContactOptedOut(ctx context.Context, contactID string) (bool, error)

	// Workspaces.
	WorkspaceByID(ctx context.Context, id string) (*models.Workspace, error)
	SaveWorkspace(ctx context.Context, workspace *models.Workspace) error

	// Categories.
	UpsertCategory(ctx context.Context, workspaceID, name string) (*models.Category, error)
	UpsertContactCategory(ctx context.Context, contactID, categoryID string) error
	RemoveContactCategory(ctx context.Context, contactID, categoryID string) error
	ContactHasCategory(ctx context.Context, contactID, categoryName string) (bool, error)

	// Activity log.
	CreateActivity(ctx context.Context, activity *models.Activity) error

	// Task board. FindOrCreateDefaultColumn must be atomic with respect to
	// concurrent callers: two first-runs racing on an empty board yield one
	// default column. NextTaskNumber is read-max-plus-one and carries no such
	// guarantee; duplicate numbers under concurrent creation are a known risk.
	FindOrCreateDefaultColumn(ctx context.Context, workspaceID string) (*models.TaskColumn, error)
	ColumnByID(ctx context.Context, id string) (*models.TaskColumn, error)
	NextTaskNumber(ctx context.Context, workspaceID string) (int, error)
	CreateTask(ctx context.Context, task *models.Task) error

	// Messaging.
	RecordEmailSend(ctx context.Context, send *models.EmailSend) error
	RecordSmsMessage(ctx context.Context, msg *models.SmsMessage) error
	UpsertConversation(ctx context.Context, workspaceID, contactID, lastMessage string, at time.Time) error
	// LastCampaignMessageAt returns the most recent sequence-attributed
	// message sent to the contact over any channel, or nil if none.
	LastCampaignMessageAt(ctx context.Context, contactID string) (*time.Time, error)

	// Sequences.
	SequenceByID(ctx context.Context, id string) (*models.Sequence, error)
	SequencesByWorkspace(ctx context.Context, workspaceID string) ([]*models.Sequence, error)
	ActiveSequencesByTrigger(ctx context.Context, workspaceID string, triggerType models.TriggerType) ([]*models.Sequence, error)
	SaveSequence(ctx context.Context, sequence *models.Sequence) error

	// Enrollments. CreateEnrollment returns ErrEnrollmentExists when an
	// active enrollment already holds the (sequence, contact) pair; this
	// store conflict is the authoritative dedupe signal, the engine's guard
	// is advisory.
	CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error
	EnrollmentByID(ctx context.Context, id string) (*models.Enrollment, error)
	ActiveEnrollment(ctx context.Context, sequenceID, contactID string) (*models.Enrollment, error)
	LatestEnrollment(ctx context.Context, sequenceID, contactID string) (*models.Enrollment, error)
	UpdateEnrollment(ctx context.Context, enrollment *models.Enrollment) error
	DueEnrollments(ctx context.Context, before time.Time, limit int) ([]*models.Enrollment, error)

	// AI usage log.
	RecordAIUsage(ctx context.Context, usage *models.AIUsage) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
