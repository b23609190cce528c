// Package ainode provides the node executor that delegates to the AI
// orchestration layer and writes the generated text back into the workflow
// context under a configurable variable name.
package ainode

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cadenzahq/cadenza/pkg/executors"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/protocol"
)

// DefaultVariableName receives the generated text when the node config does
// not name a variable.
const DefaultVariableName = "aiOutput"

type Executor struct {
	Mode         models.AIMode
	Provider     string
	Model        string
	PresetID     string
	SystemPrompt string
	UserPrompt   string
	VariableName string
}

func NewExecutor(config map[string]any) (*Executor, error) {
	mode, _ := config["mode"].(string)
	provider, _ := config["provider"].(string)
	model, _ := config["model"].(string)
	presetID, _ := config["presetId"].(string)
	systemPrompt, _ := config["systemPrompt"].(string)
	userPrompt, _ := config["userPrompt"].(string)
	variableName, _ := config["variableName"].(string)

	if variableName == "" {
		variableName = DefaultVariableName
	}

	return &Executor{
		Mode:         models.AIMode(mode),
		Provider:     provider,
		Model:        model,
		PresetID:     presetID,
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		VariableName: variableName,
	}, nil
}

var _ protocol.Executor = (*Executor)(nil)

func (e *Executor) Execute(ctx context.Context, deps protocol.Deps, req models.NodeRequest, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("action_type", models.NodeTypeAI, "ai_mode", e.Mode, "ai_provider", e.Provider)

	return executors.Run(ctx, deps, req, logger, func(ctx context.Context) (map[string]any, error) {
		return e.execute(ctx, deps, req, logger)
	})
}

func (e *Executor) execute(ctx context.Context, deps protocol.Deps, req models.NodeRequest, logger *slog.Logger) (map[string]any, error) {
	execCtx := req.Context

	result, err := deps.AI.Generate(ctx, models.AIRequest{
		Mode:         e.Mode,
		Provider:     e.Provider,
		Model:        e.Model,
		PresetID:     e.PresetID,
		SystemPrompt: e.SystemPrompt,
		UserPrompt:   e.UserPrompt,
		VariableName: e.VariableName,
		WorkspaceID:  execCtx.WorkspaceID,
	}, execCtx)
	if err != nil {
		return nil, fmt.Errorf("ai generation failed: %w", err)
	}

	logger.Info("AI generation completed",
		"model", result.Model,
		"input_tokens", result.InputTokens,
		"output_tokens", result.OutputTokens,
	)

	return map[string]any{
		e.VariableName: result.Text,
		"aiModel":      result.Model,
		"aiProvider":   result.Provider,
		"aiTokens":     result.InputTokens + result.OutputTokens,
	}, nil
}
