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
)

// MessagingRepository handles email sends, SMS messages and conversations.
type MessagingRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewMessagingRepository(db *sql.DB, logger *slog.Logger) *MessagingRepository {
	return &MessagingRepository{db: db, logger: logger}
}

func (mr *MessagingRepository) RecordEmailSend(ctx context.Context, send *models.EmailSend) error {
	if send.ID == "" {
		send.ID = uuid.New().String()
	}

	query := `
		INSERT INTO email_sends (id, workspace_id, contact_id, from_address, to_address, subject, body, sequence_id, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, '')::uuid, $9)
	`

	_, err := mr.db.ExecContext(ctx, query,
		send.ID, send.WorkspaceID, send.ContactID, send.From, send.To,
		send.Subject, send.Body, send.SequenceID, send.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record email send: %w", err)
	}

	return nil
}

func (mr *MessagingRepository) RecordSmsMessage(ctx context.Context, msg *models.SmsMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	query := `
		INSERT INTO sms_messages (id, workspace_id, contact_id, direction, from_number, to_number, body, sequence_id, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, '')::uuid, $9)
	`

	_, err := mr.db.ExecContext(ctx, query,
		msg.ID, msg.WorkspaceID, msg.ContactID, msg.Direction, msg.From,
		msg.To, msg.Body, msg.SequenceID, msg.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record sms message: %w", err)
	}

	return nil
}

func (mr *MessagingRepository) UpsertConversation(ctx context.Context, workspaceID, contactID, lastMessage string, at time.Time) error {
	query := `
		INSERT INTO conversations (id, workspace_id, contact_id, last_message, last_message_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (workspace_id, contact_id) DO UPDATE SET
			last_message = EXCLUDED.last_message,
			last_message_at = EXCLUDED.last_message_at
	`

	_, err := mr.db.ExecContext(ctx, query, uuid.New().String(), workspaceID, contactID, lastMessage, at)
	if err != nil {
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}

	return nil
}

// LastCampaignMessageAt returns the most recent sequence-attributed message
// sent to the contact over either channel, nil when none exists.
func (mr *MessagingRepository) LastCampaignMessageAt(ctx context.Context, contactID string) (*time.Time, error) {
	query := `
		SELECT MAX(sent_at) FROM (
			SELECT sent_at FROM sms_messages WHERE contact_id = $1 AND sequence_id IS NOT NULL
			UNION ALL
			SELECT sent_at FROM email_sends WHERE contact_id = $1 AND sequence_id IS NOT NULL
		) campaign_messages
	`

	var last sql.NullTime

	err := mr.db.QueryRowContext(ctx, query, contactID).Scan(&last)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to query last campaign message: %w", err)
	}

	if !last.Valid {
		return nil, nil
	}

	return &last.Time, nil
}
