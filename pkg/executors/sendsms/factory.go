package sendsms

import (
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() string {
	return models.NodeTypeSendSms
}

func (*Factory) Name() string {
	return "Send SMS"
}

func (*Factory) Description() string {
	return "Sends a text message from the workspace outbound number. Refuses opted-out contacts, re-checked at send time."
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
			"body": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Message body. Supports {token} and {{path}} templating.",
				"examples": []string{
					"Hi {first_name}, it's {business_name}. Ready to book? {booking_link}",
				},
			},
		},
		"required":      []string{"body"},
		"contextReads":  []string{"contactId"},
		"contextWrites": []string{"smsMessageId", "smsSentAt"},
	}
}
