package models

import "time"

type AIMode string

const (
	AIModeGenerate  AIMode = "generate"
	AIModeAnalyze   AIMode = "analyze"
	AIModeSummarize AIMode = "summarize"
)

// AIRequest is the orchestration-layer input. Explicit prompts take
// precedence over the preset's stored text.
type AIRequest struct {
	Mode         AIMode `json:"mode"     validate:"required,oneof=generate analyze summarize"`
	Provider     string `json:"provider" validate:"required"`
	Model        string `json:"model,omitempty"`
	PresetID     string `json:"preset_id,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	UserPrompt   string `json:"user_prompt,omitempty"`
	VariableName string `json:"variable_name,omitempty"`
	WorkspaceID  string `json:"workspace_id" validate:"required"`
}

// AIResult is the uniform shape returned regardless of provider backend.
type AIResult struct {
	Text         string `json:"text"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	Model        string `json:"model"`
	Provider     string `json:"provider"`
}

// PromptPreset is pure data: reusable prompt text grouped by mode.
type PromptPreset struct {
	ID           string `json:"id"`
	Mode         AIMode `json:"mode"`
	System       string `json:"system"`
	UserTemplate string `json:"user_template"`
}

// AIUsage is one logged provider call, priced from the static rate table.
type AIUsage struct {
	ID            string    `json:"id"`
	WorkspaceID   string    `json:"workspace_id"`
	Provider      string    `json:"provider"`
	Model         string    `json:"model"`
	InputTokens   int       `json:"input_tokens"`
	OutputTokens  int       `json:"output_tokens"`
	EstimatedCost float64   `json:"estimated_cost"` // USD
	CreatedAt     time.Time `json:"created_at"`
}
