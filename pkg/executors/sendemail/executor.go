// Package sendemail provides the node executor that dispatches an email to
// the contact in the execution context.
package sendemail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cadenzahq/cadenza/pkg/executors"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/protocol"
	"github.com/cadenzahq/cadenza/pkg/template"
)

type Executor struct {
	Subject string
	Body    string
}

func NewExecutor(config map[string]any) (*Executor, error) {
	subject, _ := config["subject"].(string)
	body, _ := config["body"].(string)

	return &Executor{Subject: subject, Body: body}, nil
}

var _ protocol.Executor = (*Executor)(nil)

func (e *Executor) Execute(ctx context.Context, deps protocol.Deps, req models.NodeRequest, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("action_type", models.NodeTypeSendEmail)

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

	if contact.Email == "" {
		return nil, fmt.Errorf("contact %s: %w", contactID, executors.ErrNoEmailAddress)
	}

	if contact.OptedOut {
		return nil, fmt.Errorf("contact %s: %w", contactID, executors.ErrContactOptedOut)
	}

	workspace, err := deps.Store.WorkspaceByID(ctx, execCtx.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}

	if workspace.SenderEmail == "" {
		return nil, fmt.Errorf("workspace %s: %w", workspace.ID, executors.ErrNoSenderAddress)
	}

	scope := template.Scope{Contact: contact, Workspace: workspace, Workflow: execCtx.Values}

	subject := deps.Resolver.Resolve(e.Subject, scope, execCtx)
	body := deps.Resolver.Resolve(e.Body, scope, execCtx)

	if body == "" {
		return nil, fmt.Errorf("email body: %w", executors.ErrEmptyTemplate)
	}

	sentAt := time.Now().UTC()

	_, err = deps.Runner.Run(ctx, "send-email", func(ctx context.Context) (any, error) {
		// Opt-out is re-checked from the store at send time; the snapshot
		// above can be stale between scheduling and execution.
		optedOut, err := deps.Store.IsContactOptedOut(ctx, contact.ID)
		if err != nil {
			return nil, fmt.Errorf("opt-out re-check failed: %w", err)
		}

		if optedOut {
			return nil, fmt.Errorf("contact %s: %w", contact.ID, executors.ErrContactOptedOut)
		}

		return nil, deps.Email.SendEmail(ctx, workspace.SenderEmail, contact.Email, subject, body)
	})
	if err != nil {
		return nil, fmt.Errorf("email dispatch failed: %w", err)
	}

	// Drip-scheduler runs carry the sequence in context; the attribution
	// feeds the bulk-enrollment frequency-cap exclusion.
	sequenceID, _ := execCtx.String("sequenceId")

	send := &models.EmailSend{
		WorkspaceID: workspace.ID,
		ContactID:   contact.ID,
		From:        workspace.SenderEmail,
		To:          contact.Email,
		Subject:     subject,
		Body:        body,
		SequenceID:  sequenceID,
		SentAt:      sentAt,
	}

	_, err = deps.Runner.Run(ctx, "record-send", func(ctx context.Context) (any, error) {
		return nil, deps.Store.RecordEmailSend(ctx, send)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record email send: %w", err)
	}

	_, err = deps.Runner.Run(ctx, "touch-contact", func(ctx context.Context) (any, error) {
		return nil, deps.Store.TouchContactLastContacted(ctx, contact.ID, sentAt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update last-contacted timestamp: %w", err)
	}

	logger.Info("Email sent", "contact_id", contact.ID)

	return map[string]any{
		"emailSendId": send.ID,
		"emailedAt":   sentAt.Format(time.RFC3339),
	}, nil
}
