// Package createtask provides the node executor that files a task onto the
// workspace board.
package createtask

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cadenzahq/cadenza/pkg/executors"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/protocol"
	"github.com/cadenzahq/cadenza/pkg/template"
)

type Executor struct {
	Title       string
	Description string
	ColumnID    string
}

func NewExecutor(config map[string]any) (*Executor, error) {
	title, _ := config["title"].(string)
	description, _ := config["description"].(string)
	columnID, _ := config["columnId"].(string)

	return &Executor{
		Title:       title,
		Description: description,
		ColumnID:    columnID,
	}, nil
}

var _ protocol.Executor = (*Executor)(nil)

func (e *Executor) Execute(ctx context.Context, deps protocol.Deps, req models.NodeRequest, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("action_type", models.NodeTypeCreateTask)

	return executors.Run(ctx, deps, req, logger, func(ctx context.Context) (map[string]any, error) {
		return e.execute(ctx, deps, req, logger)
	})
}

func (e *Executor) execute(ctx context.Context, deps protocol.Deps, req models.NodeRequest, logger *slog.Logger) (map[string]any, error) {
	execCtx := req.Context

	workspace, err := deps.Store.WorkspaceByID(ctx, execCtx.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}

	scope := template.Scope{Workspace: workspace, Workflow: execCtx.Values}

	contactID, hasContact := execCtx.ContactID()
	if hasContact {
		contact, err := deps.Store.ContactByID(ctx, contactID)
		if err == nil {
			scope.Contact = contact
		} else {
			// The contact link is best-effort: a task is still useful when
			// the originating contact has since been deleted.
			logger.Warn("Contact from context not found, creating unlinked task", "contact_id", contactID)
			hasContact = false
		}
	}

	title := deps.Resolver.Resolve(e.Title, scope, execCtx)
	if title == "" {
		return nil, fmt.Errorf("task title: %w", executors.ErrEmptyTemplate)
	}

	description := deps.Resolver.Resolve(e.Description, scope, execCtx)

	columnResult, err := deps.Runner.Run(ctx, "resolve-column", func(ctx context.Context) (any, error) {
		if e.ColumnID != "" {
			column, err := deps.Store.ColumnByID(ctx, e.ColumnID)
			if err != nil {
				return nil, err
			}

			return column.ID, nil
		}

		// The store runs the find-or-create under its serializable guard, so
		// concurrent first-runs against an empty board end up on one column.
		column, err := deps.Store.FindOrCreateDefaultColumn(ctx, execCtx.WorkspaceID)
		if err != nil {
			return nil, err
		}

		return column.ID, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve task column: %w", err)
	}

	// Max-plus-one read outside any serializable boundary: concurrent task
	// creation can allocate duplicate numbers.
	numberResult, err := deps.Runner.Run(ctx, "allocate-number", func(ctx context.Context) (any, error) {
		return deps.Store.NextTaskNumber(ctx, execCtx.WorkspaceID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to allocate task number: %w", err)
	}

	task := &models.Task{
		WorkspaceID: execCtx.WorkspaceID,
		ColumnID:    columnResult.(string),
		Number:      asInt(numberResult),
		Title:       title,
		Description: description,
	}
	if hasContact {
		task.ContactID = contactID
	}

	_, err = deps.Runner.Run(ctx, "create-task", func(ctx context.Context) (any, error) {
		return nil, deps.Store.CreateTask(ctx, task)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	logger.Info("Task created", "task_number", task.Number, "column_id", task.ColumnID)

	return map[string]any{
		"taskId":     task.ID,
		"taskNumber": task.Number,
	}, nil
}

// asInt tolerates the step runner round-tripping results through JSON.
func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
