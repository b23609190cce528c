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

// EnrollmentRepository handles enrollment records. The partial unique index
// on active (sequence_id, contact_id) pairs is the authoritative dedupe.
type EnrollmentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewEnrollmentRepository(db *sql.DB, logger *slog.Logger) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, logger: logger}
}

const enrollmentColumns = `id, sequence_id, contact_id, workspace_id, status, current_step, next_step_at, created_at, updated_at`

func (er *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.New().String()
	}

	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}

	enrollment.UpdatedAt = enrollment.CreatedAt

	query := `
		INSERT INTO enrollments (` + enrollmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := er.db.ExecContext(ctx, query,
		enrollment.ID, enrollment.SequenceID, enrollment.ContactID,
		enrollment.WorkspaceID, enrollment.Status, enrollment.CurrentStep,
		enrollment.NextStepAt, enrollment.CreatedAt, enrollment.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewStoreError("CreateEnrollment", "enrollment",
				enrollment.SequenceID+"/"+enrollment.ContactID, persistence.ErrEnrollmentExists)
		}

		return fmt.Errorf("failed to create enrollment: %w", err)
	}

	return nil
}

func (er *EnrollmentRepository) GetByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`

	enrollment, err := er.scanEnrollment(er.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("EnrollmentByID", "enrollment", id, persistence.ErrEnrollmentNotFound)
		}

		return nil, fmt.Errorf("failed to scan enrollment: %w", err)
	}

	return enrollment, nil
}

func (er *EnrollmentRepository) GetActive(ctx context.Context, sequenceID, contactID string) (*models.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE sequence_id = $1 AND contact_id = $2 AND status = 'active'
	`

	enrollment, err := er.scanEnrollment(er.db.QueryRowContext(ctx, query, sequenceID, contactID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("ActiveEnrollment", "enrollment",
				sequenceID+"/"+contactID, persistence.ErrEnrollmentNotFound)
		}

		return nil, fmt.Errorf("failed to scan enrollment: %w", err)
	}

	return enrollment, nil
}

func (er *EnrollmentRepository) GetLatest(ctx context.Context, sequenceID, contactID string) (*models.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE sequence_id = $1 AND contact_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	enrollment, err := er.scanEnrollment(er.db.QueryRowContext(ctx, query, sequenceID, contactID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("LatestEnrollment", "enrollment",
				sequenceID+"/"+contactID, persistence.ErrEnrollmentNotFound)
		}

		return nil, fmt.Errorf("failed to scan enrollment: %w", err)
	}

	return enrollment, nil
}

func (er *EnrollmentRepository) Update(ctx context.Context, enrollment *models.Enrollment) error {
	query := `
		UPDATE enrollments
		SET status = $2, current_step = $3, next_step_at = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := er.db.ExecContext(ctx, query,
		enrollment.ID, enrollment.Status, enrollment.CurrentStep,
		enrollment.NextStepAt, enrollment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update enrollment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("UpdateEnrollment", "enrollment", enrollment.ID, persistence.ErrEnrollmentNotFound)
	}

	return nil
}

// GetDue returns active enrollments whose next step is due, oldest first.
func (er *EnrollmentRepository) GetDue(ctx context.Context, before time.Time, limit int) ([]*models.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE status = 'active' AND next_step_at IS NOT NULL AND next_step_at <= $1
		ORDER BY next_step_at
		LIMIT $2
	`

	rows, err := er.db.QueryContext(ctx, query, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due enrollments: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			er.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var enrollments []*models.Enrollment

	for rows.Next() {
		enrollment, err := er.scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}

		enrollments = append(enrollments, enrollment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enrollments: %w", err)
	}

	return enrollments, nil
}

func (er *EnrollmentRepository) scanEnrollment(row interface{ Scan(...any) error }) (*models.Enrollment, error) {
	var (
		enrollment models.Enrollment
		nextStepAt sql.NullTime
	)

	err := row.Scan(
		&enrollment.ID, &enrollment.SequenceID, &enrollment.ContactID,
		&enrollment.WorkspaceID, &enrollment.Status, &enrollment.CurrentStep,
		&nextStepAt, &enrollment.CreatedAt, &enrollment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if nextStepAt.Valid {
		enrollment.NextStepAt = &nextStepAt.Time
	}

	return &enrollment, nil
}
