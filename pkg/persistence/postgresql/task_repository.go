package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
)

// TaskRepository handles task board operations.
type TaskRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewTaskRepository(db *sql.DB, logger *slog.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

// FindOrCreateDefaultColumn returns the workspace's default column, creating
// it inside a serializable transaction when none exists. Two concurrent
// first-runs cannot both commit a default: the loser fails on either the
// serialization conflict or the partial unique index and retries the read.
func (tr *TaskRepository) FindOrCreateDefaultColumn(ctx context.Context, workspaceID string) (*models.TaskColumn, error) {
	column, err := tr.defaultColumn(ctx, tr.db, workspaceID)
	if err == nil {
		return column, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query default column: %w", err)
	}

	created, err := tr.createDefaultColumn(ctx, workspaceID)
	if err == nil {
		return created, nil
	}

	if isSerializationFailure(err) || isUniqueViolation(err) {
		// Lost the race: the other transaction committed the default.
		column, readErr := tr.defaultColumn(ctx, tr.db, workspaceID)
		if readErr != nil {
			return nil, fmt.Errorf("failed to re-read default column: %w", readErr)
		}

		return column, nil
	}

	return nil, err
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (tr *TaskRepository) defaultColumn(ctx context.Context, q querier, workspaceID string) (*models.TaskColumn, error) {
	query := `
		SELECT id, workspace_id, name, position, is_default
		FROM task_columns
		WHERE workspace_id = $1 AND is_default
	`

	var column models.TaskColumn

	err := q.QueryRowContext(ctx, query, workspaceID).Scan(
		&column.ID, &column.WorkspaceID, &column.Name, &column.Position, &column.IsDefault,
	)
	if err != nil {
		return nil, err
	}

	return &column, nil
}

func (tr *TaskRepository) createDefaultColumn(ctx context.Context, workspaceID string) (*models.TaskColumn, error) {
	transaction, err := tr.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		_ = transaction.Rollback()
	}()

	column, err := tr.defaultColumn(ctx, transaction, workspaceID)
	if err == nil {
		_ = transaction.Commit()

		return column, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query default column: %w", err)
	}

	column = &models.TaskColumn{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		Name:        "To Do",
		Position:    0,
		IsDefault:   true,
	}

	_, err = transaction.ExecContext(ctx,
		`INSERT INTO task_columns (id, workspace_id, name, position, is_default) VALUES ($1, $2, $3, $4, $5)`,
		column.ID, column.WorkspaceID, column.Name, column.Position, column.IsDefault,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert default column: %w", err)
	}

	if err := transaction.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit default column: %w", err)
	}

	return column, nil
}

func (tr *TaskRepository) ColumnByID(ctx context.Context, id string) (*models.TaskColumn, error) {
	query := `
		SELECT id, workspace_id, name, position, is_default
		FROM task_columns
		WHERE id = $1
	`

	var column models.TaskColumn

	err := tr.db.QueryRowContext(ctx, query, id).Scan(
		&column.ID, &column.WorkspaceID, &column.Name, &column.Position, &column.IsDefault,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("ColumnByID", "column", id, persistence.ErrColumnNotFound)
		}

		return nil, fmt.Errorf("failed to scan column: %w", err)
	}

	return &column, nil
}

// NextTaskNumber reads the current workspace maximum and adds one. Not
// retry-safe: concurrent creations can observe the same maximum.
func (tr *TaskRepository) NextTaskNumber(ctx context.Context, workspaceID string) (int, error) {
	var number int

	err := tr.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(number), 0) + 1 FROM tasks WHERE workspace_id = $1`,
		workspaceID,
	).Scan(&number)
	if err != nil {
		return 0, fmt.Errorf("failed to query next task number: %w", err)
	}

	return number, nil
}

func (tr *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}

	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO tasks (id, workspace_id, column_id, number, title, description, contact_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
	`

	_, err := tr.db.ExecContext(ctx, query,
		task.ID, task.WorkspaceID, task.ColumnID, task.Number,
		task.Title, task.Description, task.ContactID, task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error

	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error

	return errors.As(err, &pqErr) && pqErr.Code == "40001"
}
