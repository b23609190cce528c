package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
)

// ContactRepository handles contact, category and activity operations.
type ContactRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewContactRepository(db *sql.DB, logger *slog.Logger) *ContactRepository {
	return &ContactRepository{db: db, logger: logger}
}

const contactColumns = `id, workspace_id, first_name, last_name, email, phone, stage, source, opted_out, assigned_to_id, last_contacted_at, created_at, updated_at`

func (cr *ContactRepository) GetByID(ctx context.Context, id string) (*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`

	contact, err := cr.scanContact(cr.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("ContactByID", "contact", id, persistence.ErrContactNotFound)
		}

		return nil, fmt.Errorf("failed to scan contact: %w", err)
	}

	return contact, nil
}

func (cr *ContactRepository) GetByWorkspace(ctx context.Context, workspaceID string) ([]*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE workspace_id = $1 ORDER BY created_at`

	rows, err := cr.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			cr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var contacts []*models.Contact

	for rows.Next() {
		contact, err := cr.scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}

		contacts = append(contacts, contact)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contacts: %w", err)
	}

	return contacts, nil
}

func (cr *ContactRepository) Save(ctx context.Context, contact *models.Contact) error {
	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}

	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = time.Now().UTC()
	}

	contact.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO contacts (` + contactColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			stage = EXCLUDED.stage,
			source = EXCLUDED.source,
			opted_out = EXCLUDED.opted_out,
			assigned_to_id = EXCLUDED.assigned_to_id,
			last_contacted_at = EXCLUDED.last_contacted_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := cr.db.ExecContext(ctx, query,
		contact.ID, contact.WorkspaceID, contact.FirstName, contact.LastName,
		contact.Email, contact.Phone, contact.Stage, contact.Source,
		contact.OptedOut, contact.AssignedToID, contact.LastContactedAt,
		contact.CreatedAt, contact.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}

	return nil
}

func (cr *ContactRepository) UpdateStage(ctx context.Context, contactID, stage string) error {
	return cr.updateField(ctx, "UpdateContactStage", contactID,
		`UPDATE contacts SET stage = $2, updated_at = NOW() WHERE id = $1`, stage)
}

func (cr *ContactRepository) UpdateAssignee(ctx context.Context, contactID, userID string) error {
	return cr.updateField(ctx, "UpdateContactAssignee", contactID,
		`UPDATE contacts SET assigned_to_id = $2, updated_at = NOW() WHERE id = $1`, userID)
}

func (cr *ContactRepository) TouchLastContacted(ctx context.Context, contactID string, at time.Time) error {
	return cr.updateField(ctx, "TouchContactLastContacted", contactID,
		`UPDATE contacts SET last_contacted_at = $2, updated_at = NOW() WHERE id = $1`, at)
}

func (cr *ContactRepository) updateField(ctx context.Context, op, contactID, query string, value any) error {
	result, err := cr.db.ExecContext(ctx, query, contactID, value)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError(op, "contact", contactID, persistence.ErrContactNotFound)
	}

	return nil
}

func (cr *ContactRepository) IsOptedOut(ctx context.Context, contactID string) (bool, error) {
	var optedOut bool

	err := cr.db.QueryRowContext(ctx, `SELECT opted_out FROM contacts WHERE id = $1`, contactID).Scan(&optedOut)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, persistence.NewStoreError("IsContactOptedOut", "contact", contactID, persistence.ErrContactNotFound)
		}

		return false, fmt.Errorf("failed to query opt-out state: %w", err)
	}

	return optedOut, nil
}

// UpsertCategory finds or creates the named category in the workspace.
func (cr *ContactRepository) UpsertCategory(ctx context.Context, workspaceID, name string) (*models.Category, error) {
	query := `
		INSERT INTO categories (id, workspace_id, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (workspace_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`

	category := &models.Category{WorkspaceID: workspaceID, Name: name}

	err := cr.db.QueryRowContext(ctx, query, uuid.New().String(), workspaceID, name).Scan(&category.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert category: %w", err)
	}

	return category, nil
}

func (cr *ContactRepository) UpsertContactCategory(ctx context.Context, contactID, categoryID string) error {
	query := `
		INSERT INTO contact_categories (contact_id, category_id)
		VALUES ($1, $2)
		ON CONFLICT (contact_id, category_id) DO NOTHING
	`

	_, err := cr.db.ExecContext(ctx, query, contactID, categoryID)
	if err != nil {
		return fmt.Errorf("failed to link contact category: %w", err)
	}

	return nil
}

func (cr *ContactRepository) RemoveContactCategory(ctx context.Context, contactID, categoryID string) error {
	_, err := cr.db.ExecContext(ctx,
		`DELETE FROM contact_categories WHERE contact_id = $1 AND category_id = $2`,
		contactID, categoryID,
	)
	if err != nil {
		return fmt.Errorf("failed to unlink contact category: %w", err)
	}

	return nil
}

func (cr *ContactRepository) HasCategory(ctx context.Context, contactID, categoryName string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM contact_categories cc
			JOIN categories c ON c.id = cc.category_id
			WHERE cc.contact_id = $1 AND c.name = $2
		)
	`

	var has bool

	err := cr.db.QueryRowContext(ctx, query, contactID, categoryName).Scan(&has)
	if err != nil {
		return false, fmt.Errorf("failed to check category membership: %w", err)
	}

	return has, nil
}

func (cr *ContactRepository) CreateActivity(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}

	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO activities (id, workspace_id, contact_id, kind, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := cr.db.ExecContext(ctx, query,
		activity.ID, activity.WorkspaceID, activity.ContactID,
		activity.Kind, activity.Body, activity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}

	return nil
}

func (cr *ContactRepository) scanContact(row interface{ Scan(...any) error }) (*models.Contact, error) {
	var (
		contact         models.Contact
		lastContactedAt sql.NullTime
	)

	err := row.Scan(
		&contact.ID, &contact.WorkspaceID, &contact.FirstName, &contact.LastName,
		&contact.Email, &contact.Phone, &contact.Stage, &contact.Source,
		&contact.OptedOut, &contact.AssignedToID, &lastContactedAt,
		&contact.CreatedAt, &contact.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastContactedAt.Valid {
		contact.LastContactedAt = &lastContactedAt.Time
	}

	return &contact, nil
}
