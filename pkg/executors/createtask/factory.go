package createtask

import (
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() string {
	return models.NodeTypeCreateTask
}

func (*Factory) Name() string {
	return "Create Task"
}

func (*Factory) Description() string {
	return "Creates a task on the workspace board, linked to the originating contact when one is present."
}

func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	if config == nil {
		config = map[string]any{}
	}

	return NewExecutor(config)
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Task title. Supports {token} and {{path}} templating.",
				"examples": []string{
					"Follow up with {first_name}",
					"Call back {full_name} about {{lastTopic}}",
				},
			},
			"description": map[string]any{
				"type":        "string",
				"description": "Task description. Supports templating.",
			},
			"columnId": map[string]any{
				"type":        "string",
				"description": "Target board column. The workspace default column is used when omitted.",
			},
		},
		"required":      []string{"title"},
		"contextReads":  []string{"contactId"},
		"contextWrites": []string{"taskId", "taskNumber"},
	}
}
