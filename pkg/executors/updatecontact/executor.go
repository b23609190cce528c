// Package updatecontact provides the node executor with five update
// variants: update_stage, add_category, remove_category, log_note and
// assign_contact. Stage and category changes fire chained triggers carrying
// a depth counter so downstream automation can bound recursive chains.
package updatecontact

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cadenzahq/cadenza/pkg/executors"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/protocol"
	"github.com/cadenzahq/cadenza/pkg/template"
)

const (
	ActionUpdateStage    = "update_stage"
	ActionAddCategory    = "add_category"
	ActionRemoveCategory = "remove_category"
	ActionLogNote        = "log_note"
	ActionAssignContact  = "assign_contact"
)

type Executor struct {
	Action     string
	Stage      string
	Category   string
	Note       string
	AssigneeID string
}

func NewExecutor(config map[string]any) (*Executor, error) {
	action, _ := config["action"].(string)
	stage, _ := config["stage"].(string)
	category, _ := config["category"].(string)
	note, _ := config["note"].(string)
	assigneeID, _ := config["assigneeId"].(string)

	switch action {
	case ActionUpdateStage, ActionAddCategory, ActionRemoveCategory, ActionLogNote, ActionAssignContact:
	default:
		return nil, fmt.Errorf("%w: %q", executors.ErrUnknownAction, action)
	}

	return &Executor{
		Action:     action,
		Stage:      stage,
		Category:   category,
		Note:       note,
		AssigneeID: assigneeID,
	}, nil
}

var _ protocol.Executor = (*Executor)(nil)

func (e *Executor) Execute(ctx context.Context, deps protocol.Deps, req models.NodeRequest, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("action_type", models.NodeTypeUpdateContact, "update_action", e.Action)

	return executors.Run(ctx, deps, req, logger, func(ctx context.Context) (map[string]any, error) {
		return e.execute(ctx, deps, req, logger)
	})
}

func (e *Executor) execute(ctx context.Context, deps protocol.Deps, req models.NodeRequest, logger *slog.Logger) (map[string]any, error) {
	execCtx := req.Context

	contactID, ok := execCtx.ContactID()
	if !ok {
		return nil, executors.ErrMissingContact
	}

	contact, err := deps.Store.ContactByID(ctx, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to load contact: %w", err)
	}

	switch e.Action {
	case ActionUpdateStage:
		return e.updateStage(ctx, deps, execCtx, contact, logger)
	case ActionAddCategory:
		return e.addCategory(ctx, deps, execCtx, contact, logger)
	case ActionRemoveCategory:
		return e.removeCategory(ctx, deps, contact)
	case ActionLogNote:
		return e.logNote(ctx, deps, execCtx, contact)
	case ActionAssignContact:
		return e.assignContact(ctx, deps, contact)
	default:
		return nil, fmt.Errorf("%w: %q", executors.ErrUnknownAction, e.Action)
	}
}

func (e *Executor) updateStage(ctx context.Context, deps protocol.Deps, execCtx models.ExecutionContext, contact *models.Contact, logger *slog.Logger) (map[string]any, error) {
	previousStage := contact.Stage

	_, err := deps.Runner.Run(ctx, "update-stage", func(ctx context.Context) (any, error) {
		return nil, deps.Store.UpdateContactStage(ctx, contact.ID, e.Stage)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update stage: %w", err)
	}

	_, err = deps.Runner.Run(ctx, "log-stage-activity", func(ctx context.Context) (any, error) {
		return nil, deps.Store.CreateActivity(ctx, &models.Activity{
			WorkspaceID: contact.WorkspaceID,
			ContactID:   contact.ID,
			Kind:        "stage_change",
			Body:        fmt.Sprintf("Stage changed from %s to %s", previousStage, e.Stage),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to log stage activity: %w", err)
	}

	depth := executors.TriggerDepth(execCtx) + 1

	err = deps.Dispatcher.Dispatch(ctx, models.TriggerStageChanged, map[string]any{
		"workspaceId":   contact.WorkspaceID,
		"contactId":     contact.ID,
		"previousStage": previousStage,
		"newStage":      e.Stage,
	}, depth)
	if err != nil {
		return nil, fmt.Errorf("failed to dispatch stage-changed trigger: %w", err)
	}

	logger.Info("Contact stage updated", "contact_id", contact.ID, "stage", e.Stage, "trigger_depth", depth)

	return map[string]any{"stage": e.Stage, "previousStage": previousStage}, nil
}

func (e *Executor) addCategory(ctx context.Context, deps protocol.Deps, execCtx models.ExecutionContext, contact *models.Contact, logger *slog.Logger) (map[string]any, error) {
	categoryResult, err := deps.Runner.Run(ctx, "upsert-category", func(ctx context.Context) (any, error) {
		category, err := deps.Store.UpsertCategory(ctx, contact.WorkspaceID, e.Category)
		if err != nil {
			return nil, err
		}

		return category.ID, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert category: %w", err)
	}

	categoryID := categoryResult.(string)

	_, err = deps.Runner.Run(ctx, "link-category", func(ctx context.Context) (any, error) {
		return nil, deps.Store.UpsertContactCategory(ctx, contact.ID, categoryID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to link category: %w", err)
	}

	depth := executors.TriggerDepth(execCtx) + 1

	err = deps.Dispatcher.Dispatch(ctx, models.TriggerCategoryAdded, map[string]any{
		"workspaceId": contact.WorkspaceID,
		"contactId":   contact.ID,
		"category":    e.Category,
	}, depth)
	if err != nil {
		return nil, fmt.Errorf("failed to dispatch category-added trigger: %w", err)
	}

	logger.Info("Category added to contact", "contact_id", contact.ID, "category", e.Category)

	return map[string]any{"categoryId": categoryID}, nil
}

func (e *Executor) removeCategory(ctx context.Context, deps protocol.Deps, contact *models.Contact) (map[string]any, error) {
	_, err := deps.Runner.Run(ctx, "remove-category", func(ctx context.Context) (any, error) {
		category, err := deps.Store.UpsertCategory(ctx, contact.WorkspaceID, e.Category)
		if err != nil {
			return nil, err
		}

		return nil, deps.Store.RemoveContactCategory(ctx, contact.ID, category.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to remove category: %w", err)
	}

	return map[string]any{}, nil
}

func (e *Executor) logNote(ctx context.Context, deps protocol.Deps, execCtx models.ExecutionContext, contact *models.Contact) (map[string]any, error) {
	scope := template.Scope{Contact: contact, Workflow: execCtx.Values}

	body := deps.Resolver.Resolve(e.Note, scope, execCtx)
	if body == "" {
		return nil, fmt.Errorf("note: %w", executors.ErrEmptyTemplate)
	}

	_, err := deps.Runner.Run(ctx, "log-note", func(ctx context.Context) (any, error) {
		return nil, deps.Store.CreateActivity(ctx, &models.Activity{
			WorkspaceID: contact.WorkspaceID,
			ContactID:   contact.ID,
			Kind:        "note",
			Body:        body,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to log note: %w", err)
	}

	return map[string]any{"noteLogged": true}, nil
}

func (e *Executor) assignContact(ctx context.Context, deps protocol.Deps, contact *models.Contact) (map[string]any, error) {
	_, err := deps.Runner.Run(ctx, "assign-contact", func(ctx context.Context) (any, error) {
		return nil, deps.Store.UpdateContactAssignee(ctx, contact.ID, e.AssigneeID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assign contact: %w", err)
	}

	return map[string]any{"assignedToId": e.AssigneeID}, nil
}
