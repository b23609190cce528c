// Package status pushes per-node execution status to the realtime channel
// the UI subscribes to. Publication is best-effort and detached from the
// critical path: a delivery failure is logged at debug and discarded, never
// surfaced to the executor.
package status

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/cadenzahq/cadenza/pkg/events"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/protocol"
)

type Publisher struct {
	publisher   message.Publisher
	workspaceID string
	logger      *slog.Logger
}

func NewPublisher(pub message.Publisher, workspaceID string, logger *slog.Logger) *Publisher {
	return &Publisher{
		publisher:   pub,
		workspaceID: workspaceID,
		logger:      logger.With("module", "status_publisher"),
	}
}

var _ protocol.StatusPublisher = (*Publisher)(nil)

// Publish spawns a detached send and returns immediately.
func (p *Publisher) Publish(nodeID string, status models.NodeStatus) {
	event := events.NodeStatusChanged{
		BaseEvent: events.BaseEvent{
			ID:          watermill.NewULID(),
			Type:        events.NodeStatusChangedEvent,
			Timestamp:   time.Now().UTC(),
			WorkspaceID: p.workspaceID,
		},
		NodeID: nodeID,
		Status: status,
	}

	go func() {
		payload, err := json.Marshal(event)
		if err != nil {
			p.logger.Debug("Failed to marshal node status", "node_id", nodeID, "error", err)

			return
		}

		msg := message.NewMessage("msg-"+event.ID, payload)
		msg.Metadata.Set(events.EventMetadataKey, nodeID)
		msg.Metadata.Set(events.EventTypeMetadataKey, string(events.NodeStatusChangedEvent))

		if err := p.publisher.Publish(events.NodeStatusTopic, msg); err != nil {
			p.logger.Debug("Failed to publish node status", "node_id", nodeID, "status", status, "error", err)
		}
	}()
}

// Noop discards all status updates. Used by the scheduler, which has no UI
// subscription.
type Noop struct{}

var _ protocol.StatusPublisher = Noop{}

func (Noop) Publish(string, models.NodeStatus) {}
