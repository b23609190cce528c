package updatecontact

import (
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() string {
	return models.NodeTypeUpdateContact
}

func (*Factory) Name() string {
	return "Update Contact"
}

func (*Factory) Description() string {
	return "Updates the originating contact: stage moves, category membership, notes and assignment. Stage and category changes fire chained triggers."
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
			"action": map[string]any{
				"type": "string",
				"enum": []string{
					ActionUpdateStage,
					ActionAddCategory,
					ActionRemoveCategory,
					ActionLogNote,
					ActionAssignContact,
				},
				"description": "Which update to apply to the contact.",
			},
			"stage": map[string]any{
				"type":        "string",
				"description": "Target pipeline stage. Required for update_stage.",
			},
			"category": map[string]any{
				"type":        "string",
				"description": "Category name. Required for add_category and remove_category.",
			},
			"note": map[string]any{
				"type":        "string",
				"description": "Note body. Supports templating. Required for log_note.",
			},
			"assigneeId": map[string]any{
				"type":        "string",
				"description": "User to assign the contact to. Required for assign_contact.",
			},
		},
		"required":      []string{"action"},
		"contextReads":  []string{"contactId"},
		"contextWrites": []string{"stage", "previousStage", "categoryId"},
	}
}
