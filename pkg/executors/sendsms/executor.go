// Package sendsms provides the node executor that sends an SMS to the
// contact in the execution context.
package sendsms

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
	Body string
}

func NewExecutor(config map[string]any) (*Executor, error) {
	body, _ := config["body"].(string)

	return &Executor{Body: body}, nil
}

var _ protocol.Executor = (*Executor)(nil)

func (e *Executor) Execute(ctx context.Context, deps protocol.Deps, req models.NodeRequest, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("action_type", models.NodeTypeSendSms)

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

	if contact.Phone == "" {
		return nil, fmt.Errorf("contact %s: %w", contactID, executors.ErrNoPhoneNumber)
	}

	if contact.OptedOut {
		return nil, fmt.Errorf("contact %s: %w", contactID, executors.ErrContactOptedOut)
	}

	workspace, err := deps.Store.WorkspaceByID(ctx, execCtx.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}

	if workspace.OutboundPhone == "" {
		return nil, fmt.Errorf("workspace %s: %w", workspace.ID, executors.ErrNoOutboundNumber)
	}

	scope := template.Scope{Contact: contact, Workspace: workspace, Workflow: execCtx.Values}

	body := deps.Resolver.Resolve(e.Body, scope, execCtx)
	if body == "" {
		return nil, fmt.Errorf("sms body: %w", executors.ErrEmptyTemplate)
	}

	sentAt := time.Now().UTC()

	_, err = deps.Runner.Run(ctx, "send-sms", func(ctx context.Context) (any, error) {
		// Opt-out is re-checked from the store at send time: the contact may
		// have opted out between scheduling and execution, and the snapshot
		// above can be stale by then.
		optedOut, err := deps.Store.IsContactOptedOut(ctx, contact.ID)
		if err != nil {
			return nil, fmt.Errorf("opt-out re-check failed: %w", err)
		}

		if optedOut {
			return nil, fmt.Errorf("contact %s: %w", contact.ID, executors.ErrContactOptedOut)
		}

		return nil, deps.Sms.SendSms(ctx, workspace.OutboundPhone, contact.Phone, body)
	})
	if err != nil {
		return nil, err
	}

	// Drip-scheduler runs carry the sequence in context; the attribution
	// feeds the bulk-enrollment frequency-cap exclusion.
	sequenceID, _ := execCtx.String("sequenceId")

	msg := &models.SmsMessage{
		WorkspaceID: workspace.ID,
		ContactID:   contact.ID,
		Direction:   models.SmsOutbound,
		From:        workspace.OutboundPhone,
		To:          contact.Phone,
		Body:        body,
		SequenceID:  sequenceID,
		SentAt:      sentAt,
	}

	_, err = deps.Runner.Run(ctx, "record-message", func(ctx context.Context) (any, error) {
		return nil, deps.Store.RecordSmsMessage(ctx, msg)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record sms message: %w", err)
	}

	_, err = deps.Runner.Run(ctx, "upsert-conversation", func(ctx context.Context) (any, error) {
		return nil, deps.Store.UpsertConversation(ctx, workspace.ID, contact.ID, body, sentAt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert conversation: %w", err)
	}

	_, err = deps.Runner.Run(ctx, "touch-contact", func(ctx context.Context) (any, error) {
		return nil, deps.Store.TouchContactLastContacted(ctx, contact.ID, sentAt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update last-contacted timestamp: %w", err)
	}

	logger.Info("SMS sent", "contact_id", contact.ID)

	return map[string]any{
		"smsMessageId": msg.ID,
		"smsSentAt":    sentAt.Format(time.RFC3339),
	}, nil
}
