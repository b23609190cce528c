// Package postgresql provides the PostgreSQL persistence implementation.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // postgres driver

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/cadenzahq/cadenza/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db             *sql.DB
	logger         *slog.Logger
	contactRepo    *ContactRepository
	workspaceRepo  *WorkspaceRepository
	taskRepo       *TaskRepository
	messagingRepo  *MessagingRepository
	sequenceRepo   *SequenceRepository
	enrollmentRepo *EnrollmentRepository
}

var _ persistence.Persistence = (*Persistence)(nil)

// NewPersistence connects, migrates and returns the PostgreSQL store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:             database,
		logger:         logger,
		contactRepo:    NewContactRepository(database, logger),
		workspaceRepo:  NewWorkspaceRepository(database, logger),
		taskRepo:       NewTaskRepository(database, logger),
		messagingRepo:  NewMessagingRepository(database, logger),
		sequenceRepo:   NewSequenceRepository(database, logger),
		enrollmentRepo: NewEnrollmentRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Contacts.

func (p *Persistence) ContactByID(ctx context.Context, id string) (*models.Contact, error) {
	return p.contactRepo.GetByID(ctx, id)
}

func (p *Persistence) ContactsByWorkspace(ctx context.Context, workspaceID string) ([]*models.Contact, error) {
	return p.contactRepo.GetByWorkspace(ctx, workspaceID)
}

func (p *Persistence) SaveContact(ctx context.Context, contact *models.Contact) error {
	return p.contactRepo.Save(ctx, contact)
}

func (p *Persistence) UpdateContactStage(ctx context.Context, contactID, stage string) error {
	return p.contactRepo.UpdateStage(ctx, contactID, stage)
}

func (p *Persistence) UpdateContactAssignee(ctx context.Context, contactID, userID string) error {
	return p.contactRepo.UpdateAssignee(ctx, contactID, userID)
}

func (p *Persistence) TouchContactLastContacted(ctx context.Context, contactID string, at time.Time) error {
	return p.contactRepo.TouchLastContacted(ctx, contactID, at)
}

func (p *Persistence) IsContactOptedOut(ctx context.Context, contactID string) (bool, error) {
	return p.contactRepo.IsOptedOut(ctx, contactID)
}

// Workspaces.

func (p *Persistence) WorkspaceByID(ctx context.Context, id string) (*models.Workspace, error) {
	return p.workspaceRepo.GetByID(ctx, id)
}

func (p *Persistence) SaveWorkspace(ctx context.Context, workspace *models.Workspace) error {
	return p.workspaceRepo.Save(ctx, workspace)
}

// Categories.

func (p *Persistence) UpsertCategory(ctx context.Context, workspaceID, name string) (*models.Category, error) {
	return p.contactRepo.UpsertCategory(ctx, workspaceID, name)
}

func (p *Persistence) UpsertContactCategory(ctx context.Context, contactID, categoryID string) error {
	return p.contactRepo.UpsertContactCategory(ctx, contactID, categoryID)
}

func (p *Persistence) RemoveContactCategory(ctx context.Context, contactID, categoryID string) error {
	return p.contactRepo.RemoveContactCategory(ctx, contactID, categoryID)
}

func (p *Persistence) ContactHasCategory(ctx context.Context, contactID, categoryName string) (bool, error) {
	return p.contactRepo.HasCategory(ctx, contactID, categoryName)
}

// Activity log.

func (p *Persistence) CreateActivity(ctx context.Context, activity *models.Activity) error {
	return p.contactRepo.CreateActivity(ctx, activity)
}

// Task board.

func (p *Persistence) FindOrCreateDefaultColumn(ctx context.Context, workspaceID string) (*models.TaskColumn, error) {
	return p.taskRepo.FindOrCreateDefaultColumn(ctx, workspaceID)
}

func (p *Persistence) ColumnByID(ctx context.Context, id string) (*models.TaskColumn, error) {
	return p.taskRepo.ColumnByID(ctx, id)
}

func (p *Persistence) NextTaskNumber(ctx context.Context, workspaceID string) (int, error) {
	return p.taskRepo.NextTaskNumber(ctx, workspaceID)
}

func (p *Persistence) CreateTask(ctx context.Context, task *models.Task) error {
	return p.taskRepo.Create(ctx, task)
}

// Messaging.

func (p *Persistence) RecordEmailSend(ctx context.Context, send *models.EmailSend) error {
	return p.messagingRepo.RecordEmailSend(ctx, send)
}

func (p *Persistence) RecordSmsMessage(ctx context.Context, msg *models.SmsMessage) error {
	return p.messagingRepo.RecordSmsMessage(ctx, msg)
}

func (p *Persistence) UpsertConversation(ctx context.Context, workspaceID, contactID, lastMessage string, at time.Time) error {
	return p.messagingRepo.UpsertConversation(ctx, workspaceID, contactID, lastMessage, at)
}

func (p *Persistence) LastCampaignMessageAt(ctx context.Context, contactID string) (*time.Time, error) {
	return p.messagingRepo.LastCampaignMessageAt(ctx, contactID)
}

// Sequences.

func (p *Persistence) SequenceByID(ctx context.Context, id string) (*models.Sequence, error) {
	return p.sequenceRepo.GetByID(ctx, id)
}

func (p *Persistence) SequencesByWorkspace(ctx context.Context, workspaceID string) ([]*models.Sequence, error) {
	return p.sequenceRepo.GetByWorkspace(ctx, workspaceID)
}

func (p *Persistence) ActiveSequencesByTrigger(ctx context.Context, workspaceID string, triggerType models.TriggerType) ([]*models.Sequence, error) {
	return p.sequenceRepo.GetActiveByTrigger(ctx, workspaceID, triggerType)
}

func (p *Persistence) SaveSequence(ctx context.Context, sequence *models.Sequence) error {
	return p.sequenceRepo.Save(ctx, sequence)
}

// Enrollments.

func (p *Persistence) CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	return p.enrollmentRepo.Create(ctx, enrollment)
}

func (p *Persistence) EnrollmentByID(ctx context.Context, id string) (*models.Enrollment, error) {
	return p.enrollmentRepo.GetByID(ctx, id)
}

func (p *Persistence) ActiveEnrollment(ctx context.Context, sequenceID, contactID string) (*models.Enrollment, error) {
	return p.enrollmentRepo.GetActive(ctx, sequenceID, contactID)
}

func (p *Persistence) LatestEnrollment(ctx context.Context, sequenceID, contactID string) (*models.Enrollment, error) {
	return p.enrollmentRepo.GetLatest(ctx, sequenceID, contactID)
}

func (p *Persistence) UpdateEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	return p.enrollmentRepo.Update(ctx, enrollment)
}

func (p *Persistence) DueEnrollments(ctx context.Context, before time.Time, limit int) ([]*models.Enrollment, error) {
	return p.enrollmentRepo.GetDue(ctx, before, limit)
}

// AI usage log.

func (p *Persistence) RecordAIUsage(ctx context.Context, usage *models.AIUsage) error {
	if usage.ID == "" {
		usage.ID = uuid.New().String()
	}

	if usage.CreatedAt.IsZero() {
		usage.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO ai_usage (id, workspace_id, provider, model, input_tokens, output_tokens, estimated_cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := p.db.ExecContext(ctx, query,
		usage.ID, usage.WorkspaceID, usage.Provider, usage.Model,
		usage.InputTokens, usage.OutputTokens, usage.EstimatedCost, usage.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record ai usage: %w", err)
	}

	return nil
}
