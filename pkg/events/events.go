// Package events defines the business event types that flow between the
// executors, the enrollment engine and the realtime status channel.
package events

import (
	"time"

	"github.com/cadenzahq/cadenza/pkg/models"
)

type EventType string

// Kafka topics.
const TriggerTopic = "cadenza.triggers"       // Business events that fire workflows and enrollments
const NodeStatusTopic = "cadenza.node.status" // Per-node execution status for the UI subscription

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Business trigger events.
	ContactCreatedEvent EventType = "contact.created"
	StageChangedEvent   EventType = "contact.stage_changed"
	CategoryAddedEvent  EventType = "contact.category_added"
	KeywordMatchedEvent EventType = "message.keyword_matched"

	// Realtime node status.
	NodeStatusChangedEvent EventType = "node.status_changed"
)

// MaxTriggerDepth bounds chained automation: a trigger produced by more than
// this many automation hops is dropped instead of dispatched.
const MaxTriggerDepth = 5

type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	WorkspaceID string    `json:"workspace_id"`
	// TriggerDepth counts automation hops that produced this event. Zero for
	// events from real user activity.
	TriggerDepth int            `json:"trigger_depth,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type ContactCreated struct {
	BaseEvent

	ContactID string `json:"contact_id"`
	Source    string `json:"source,omitempty"`
}

func (e ContactCreated) GetType() EventType {
	return ContactCreatedEvent
}

type StageChanged struct {
	BaseEvent

	ContactID     string `json:"contact_id"`
	PreviousStage string `json:"previous_stage,omitempty"`
	NewStage      string `json:"new_stage"`
}

func (e StageChanged) GetType() EventType {
	return StageChangedEvent
}

type CategoryAdded struct {
	BaseEvent

	ContactID string `json:"contact_id"`
	Category  string `json:"category"`
}

func (e CategoryAdded) GetType() EventType {
	return CategoryAddedEvent
}

type KeywordMatched struct {
	BaseEvent

	ContactID string `json:"contact_id"`
	Keyword   string `json:"keyword"`
	Message   string `json:"message,omitempty"`
}

func (e KeywordMatched) GetType() EventType {
	return KeywordMatchedEvent
}

type NodeStatusChanged struct {
	BaseEvent

	NodeID string            `json:"node_id"`
	Status models.NodeStatus `json:"status"`
}

func (e NodeStatusChanged) GetType() EventType {
	return NodeStatusChangedEvent
}

// TriggerTypeFor maps a business event type onto the sequence trigger type
// it can activate. The second return is false for events that never trigger
// sequences.
func TriggerTypeFor(eventType EventType) (models.TriggerType, bool) {
	switch eventType {
	case ContactCreatedEvent:
		return models.TriggerContactCreated, true
	case StageChangedEvent:
		return models.TriggerStageChanged, true
	case KeywordMatchedEvent:
		return models.TriggerKeywordMatched, true
	default:
		return "", false
	}
}
