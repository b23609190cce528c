package sendemail

import (
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() string {
	return models.NodeTypeSendEmail
}

func (*Factory) Name() string {
	return "Send Email"
}

func (*Factory) Description() string {
	return "Sends an email to the contact in the execution context through the workspace sender address."
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
			"subject": map[string]any{
				"type":        "string",
				"description": "Email subject. Supports {token} and {{path}} templating.",
				"examples": []string{
					"Quick question, {first_name}",
				},
			},
			"body": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Email body. Supports templating.",
				"examples": []string{
					"Hi {first_name},\n\nJust checking in about {{lastTopic}}.",
				},
			},
		},
		"required":      []string{"body"},
		"contextReads":  []string{"contactId"},
		"contextWrites": []string{"emailSendId", "emailedAt"},
	}
}
