package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
)

// SequenceRepository handles sequence definitions. Steps are stored as a
// JSONB document: they are always read and written as a whole.
type SequenceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSequenceRepository(db *sql.DB, logger *slog.Logger) *SequenceRepository {
	return &SequenceRepository{db: db, logger: logger}
}

const sequenceColumns = `id, workspace_id, name, status, audience_type, audience_filter_value, frequency_cap_days, trigger_type, trigger_value, steps, created_at, updated_at`

func (sr *SequenceRepository) GetByID(ctx context.Context, id string) (*models.Sequence, error) {
	query := `SELECT ` + sequenceColumns + ` FROM sequences WHERE id = $1`

	sequence, err := sr.scanSequence(sr.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("SequenceByID", "sequence", id, persistence.ErrSequenceNotFound)
		}

		return nil, fmt.Errorf("failed to scan sequence: %w", err)
	}

	return sequence, nil
}

func (sr *SequenceRepository) GetByWorkspace(ctx context.Context, workspaceID string) ([]*models.Sequence, error) {
	query := `SELECT ` + sequenceColumns + ` FROM sequences WHERE workspace_id = $1 ORDER BY created_at`

	return sr.querySequences(ctx, query, workspaceID)
}

func (sr *SequenceRepository) GetActiveByTrigger(ctx context.Context, workspaceID string, triggerType models.TriggerType) ([]*models.Sequence, error) {
	query := `
		SELECT ` + sequenceColumns + `
		FROM sequences
		WHERE workspace_id = $1 AND trigger_type = $2 AND status = 'active'
		ORDER BY created_at
	`

	return sr.querySequences(ctx, query, workspaceID, string(triggerType))
}

func (sr *SequenceRepository) Save(ctx context.Context, sequence *models.Sequence) error {
	if sequence.ID == "" {
		sequence.ID = uuid.New().String()
	}

	if sequence.CreatedAt.IsZero() {
		sequence.CreatedAt = time.Now().UTC()
	}

	sequence.UpdatedAt = time.Now().UTC()

	stepsJSON, err := json.Marshal(sequence.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}

	query := `
		INSERT INTO sequences (` + sequenceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			audience_type = EXCLUDED.audience_type,
			audience_filter_value = EXCLUDED.audience_filter_value,
			frequency_cap_days = EXCLUDED.frequency_cap_days,
			trigger_type = EXCLUDED.trigger_type,
			trigger_value = EXCLUDED.trigger_value,
			steps = EXCLUDED.steps,
			updated_at = EXCLUDED.updated_at
	`

	_, err = sr.db.ExecContext(ctx, query,
		sequence.ID, sequence.WorkspaceID, sequence.Name, sequence.Status,
		sequence.AudienceType, sequence.AudienceFilterValue, sequence.FrequencyCapDays,
		sequence.TriggerType, sequence.TriggerValue, stepsJSON,
		sequence.CreatedAt, sequence.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save sequence: %w", err)
	}

	return nil
}

func (sr *SequenceRepository) querySequences(ctx context.Context, query string, args ...any) ([]*models.Sequence, error) {
	rows, err := sr.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sequences: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			sr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var sequences []*models.Sequence

	for rows.Next() {
		sequence, err := sr.scanSequence(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sequence: %w", err)
		}

		sequences = append(sequences, sequence)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sequences: %w", err)
	}

	return sequences, nil
}

func (sr *SequenceRepository) scanSequence(row interface{ Scan(...any) error }) (*models.Sequence, error) {
	var (
		sequence  models.Sequence
		stepsJSON []byte
	)

	err := row.Scan(
		&sequence.ID, &sequence.WorkspaceID, &sequence.Name, &sequence.Status,
		&sequence.AudienceType, &sequence.AudienceFilterValue, &sequence.FrequencyCapDays,
		&sequence.TriggerType, &sequence.TriggerValue, &stepsJSON,
		&sequence.CreatedAt, &sequence.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(stepsJSON, &sequence.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}

	return &sequence, nil
}
