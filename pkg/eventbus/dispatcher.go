package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cadenzahq/cadenza/pkg/events"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/protocol"
)

// Dispatcher fires chained workflow triggers onto the event bus. Depth is
// bounded here: anything past events.MaxTriggerDepth is dropped with a warn
// log instead of dispatched, which is what breaks recursive automation
// chains (stage change -> workflow -> stage change -> ...).
type Dispatcher struct {
	bus    EventBus
	logger *slog.Logger
}

func NewDispatcher(bus EventBus, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		bus:    bus,
		logger: logger.With("module", "trigger_dispatcher"),
	}
}

var _ protocol.TriggerDispatcher = (*Dispatcher)(nil)

func (d *Dispatcher) Dispatch(ctx context.Context, triggerType models.TriggerType, payload map[string]any, depth int) error {
	if depth > events.MaxTriggerDepth {
		d.logger.WarnContext(ctx, "Dropping trigger beyond max chain depth",
			"trigger_type", triggerType, "depth", depth)

		return nil
	}

	event, err := d.buildEvent(triggerType, payload, depth)
	if err != nil {
		return err
	}

	key := stringValue(payload, "contactId")
	if key == "" {
		key = stringValue(payload, "workspaceId")
	}

	return d.bus.Publish(ctx, key, event)
}

func (d *Dispatcher) buildEvent(triggerType models.TriggerType, payload map[string]any, depth int) (Event, error) {
	base := events.BaseEvent{
		ID:           d.bus.GenerateID(),
		Timestamp:    time.Now().UTC(),
		WorkspaceID:  stringValue(payload, "workspaceId"),
		TriggerDepth: depth,
	}

	switch triggerType {
	case models.TriggerContactCreated:
		base.Type = events.ContactCreatedEvent

		return events.ContactCreated{
			BaseEvent: base,
			ContactID: stringValue(payload, "contactId"),
			Source:    stringValue(payload, "source"),
		}, nil
	case models.TriggerStageChanged:
		base.Type = events.StageChangedEvent

		return events.StageChanged{
			BaseEvent:     base,
			ContactID:     stringValue(payload, "contactId"),
			PreviousStage: stringValue(payload, "previousStage"),
			NewStage:      stringValue(payload, "newStage"),
		}, nil
	case models.TriggerKeywordMatched:
		base.Type = events.KeywordMatchedEvent

		return events.KeywordMatched{
			BaseEvent: base,
			ContactID: stringValue(payload, "contactId"),
			Keyword:   stringValue(payload, "keyword"),
			Message:   stringValue(payload, "message"),
		}, nil
	case models.TriggerCategoryAdded:
		base.Type = events.CategoryAddedEvent

		return events.CategoryAdded{
			BaseEvent: base,
			ContactID: stringValue(payload, "contactId"),
			Category:  stringValue(payload, "category"),
		}, nil
	case models.TriggerManual:
		return nil, fmt.Errorf("manual triggers are not dispatched through the event bus")
	default:
		return nil, fmt.Errorf("unknown trigger type %q", triggerType)
	}
}

func stringValue(payload map[string]any, key string) string {
	s, _ := payload[key].(string)

	return s
}
