package ainode

import (
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() string {
	return models.NodeTypeAI
}

func (*Factory) Name() string {
	return "AI"
}

func (*Factory) Description() string {
	return "Generates, analyzes or summarizes text via the AI orchestration layer and stores the output in the workflow context."
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
			"mode": map[string]any{
				"type":        "string",
				"enum":        []string{"generate", "analyze", "summarize"},
				"description": "Orchestration mode.",
			},
			"provider": map[string]any{
				"type":        "string",
				"enum":        []string{"openai", "anthropic", "google"},
				"description": "Model provider. A per-provider default model is used when model is omitted.",
			},
			"model": map[string]any{
				"type":        "string",
				"description": "Provider model identifier.",
			},
			"presetId": map[string]any{
				"type":        "string",
				"description": "Prompt preset to load. Explicit prompts override the preset text.",
			},
			"systemPrompt": map[string]any{
				"type":        "string",
				"description": "Explicit system prompt.",
			},
			"userPrompt": map[string]any{
				"type":        "string",
				"description": "Explicit user prompt template. Supports {token} and {{path}} templating.",
			},
			"variableName": map[string]any{
				"type":        "string",
				"description": "Context variable that receives the generated text. Defaults to aiOutput.",
			},
		},
		"required":      []string{"mode", "provider"},
		"contextWrites": []string{"aiOutput", "aiModel", "aiProvider", "aiTokens"},
	}
}
