package models

import "time"

// EmailSend records one outbound email dispatch.
type EmailSend struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	ContactID   string    `json:"contact_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	SequenceID  string    `json:"sequence_id,omitempty"` // set when sent by the drip scheduler
	SentAt      time.Time `json:"sent_at"`
}

type SmsDirection string

const (
	SmsOutbound SmsDirection = "outbound"
	SmsInbound  SmsDirection = "inbound"
)

// SmsMessage records one SMS in either direction.
type SmsMessage struct {
	ID          string       `json:"id"`
	WorkspaceID string       `json:"workspace_id"`
	ContactID   string       `json:"contact_id"`
	Direction   SmsDirection `json:"direction"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Body        string       `json:"body"`
	SequenceID  string       `json:"sequence_id,omitempty"`
	SentAt      time.Time    `json:"sent_at"`
}

// Conversation is the per-contact SMS thread surfaced in the inbox UI.
// Upserted on every outbound message.
type Conversation struct {
	ID            string    `json:"id"`
	WorkspaceID   string    `json:"workspace_id"`
	ContactID     string    `json:"contact_id"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
}
