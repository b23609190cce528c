package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cadenzahq/cadenza/pkg/ai/providers"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/cadenzahq/cadenza/pkg/protocol"
	"github.com/cadenzahq/cadenza/pkg/template"
)

// Orchestrator is the AI layer the aiNode executor delegates to. One call
// runs prompt resolution, brand injection, injection defense, the budget
// gate, provider dispatch and usage logging, in that order. The budget gate sits
// before dispatch so a refused call never spends.
type Orchestrator struct {
	store      persistence.Persistence
	budget     BudgetGate
	dispatcher *providers.Dispatcher
	resolver   *template.Resolver
	logger     *slog.Logger
}

func NewOrchestrator(
	store persistence.Persistence,
	budget BudgetGate,
	dispatcher *providers.Dispatcher,
	resolver *template.Resolver,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:      store,
		budget:     budget,
		dispatcher: dispatcher,
		resolver:   resolver,
		logger:     logger.With("module", "ai_orchestrator"),
	}
}

var _ protocol.AIOrchestrator = (*Orchestrator)(nil)

func (o *Orchestrator) Generate(ctx context.Context, req models.AIRequest, execCtx models.ExecutionContext) (models.AIResult, error) {
	systemPrompt, userTemplate, err := resolvePrompts(req)
	if err != nil {
		return models.AIResult{}, err
	}

	workspace, err := o.store.WorkspaceByID(ctx, req.WorkspaceID)
	if err != nil {
		return models.AIResult{}, fmt.Errorf("failed to load workspace for ai call: %w", err)
	}

	systemPrompt = appendBrandContext(systemPrompt, o.brandProfile(execCtx, workspace))
	systemPrompt = systemPrompt + "\n\n" + framingInstruction

	// Interpolation only ever sees sanitized text: the execution context is
	// copied through the sanitizer, and the contact snapshot goes through it
	// too before any pass-1 token can read a field. The rendered user
	// content then goes inside the delimiters.
	sanitized := sanitizeContext(execCtx)
	scope := template.Scope{Workspace: workspace, Workflow: sanitized.Values}

	if contactID, ok := execCtx.ContactID(); ok {
		if contact, err := o.store.ContactByID(ctx, contactID); err == nil {
			scope.Contact = sanitizeContact(contact)
		}
	}

	userContent := o.resolver.Resolve(userTemplate, scope, sanitized)
	userPrompt := delimitUserData(userContent)

	allowed, err := o.budget.Allow(ctx, req.WorkspaceID, workspace.AIMonthlyTokenLimit)
	if err != nil {
		return models.AIResult{}, fmt.Errorf("budget gate check failed: %w", err)
	}

	if !allowed {
		return models.AIResult{}, fmt.Errorf("workspace %s: %w", req.WorkspaceID, ErrBudgetExceeded)
	}

	result, err := o.dispatcher.Dispatch(ctx, req.Provider, providers.CompletionRequest{
		Model:        req.Model,
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
	})
	if err != nil {
		return models.AIResult{}, err
	}

	o.logUsage(req.WorkspaceID, result)

	return result, nil
}

// resolvePrompts applies precedence: explicit prompts win, otherwise the
// named preset supplies the text.
func resolvePrompts(req models.AIRequest) (systemPrompt, userTemplate string, err error) {
	systemPrompt = req.SystemPrompt
	userTemplate = req.UserPrompt

	if systemPrompt != "" && userTemplate != "" {
		return systemPrompt, userTemplate, nil
	}

	if req.PresetID == "" {
		if userTemplate == "" {
			return "", "", ErrNoPrompt
		}

		return systemPrompt, userTemplate, nil
	}

	preset, ok := PresetByID(req.PresetID)
	if !ok {
		return "", "", fmt.Errorf("preset %q: %w", req.PresetID, ErrPresetNotFound)
	}

	if systemPrompt == "" {
		systemPrompt = preset.System
	}

	if userTemplate == "" {
		userTemplate = preset.UserTemplate
	}

	return systemPrompt, userTemplate, nil
}

// brandProfile prefers a live snapshot carried in the execution context over
// a store read.
func (o *Orchestrator) brandProfile(execCtx models.ExecutionContext, workspace *models.Workspace) models.BrandProfile {
	if snapshot, ok := execCtx.Values["brandProfile"].(map[string]any); ok {
		return models.BrandProfile{
			Name:                stringAt(snapshot, "name"),
			Tone:                stringAt(snapshot, "tone"),
			Industry:            stringAt(snapshot, "industry"),
			Services:            stringsAt(snapshot, "services"),
			UniqueSellingPoints: stringsAt(snapshot, "uniqueSellingPoints"),
			SpecialInstructions: stringAt(snapshot, "specialInstructions"),
		}
	}

	return workspace.BrandProfile()
}

func appendBrandContext(systemPrompt string, profile models.BrandProfile) string {
	var b strings.Builder

	b.WriteString(systemPrompt)
	b.WriteString("\n\n--- Business context ---\n")
	writeField(&b, "Business", profile.Name)
	writeField(&b, "Tone", profile.Tone)
	writeField(&b, "Industry", profile.Industry)
	writeField(&b, "Services", strings.Join(profile.Services, ", "))
	writeField(&b, "Unique selling points", strings.Join(profile.UniqueSellingPoints, ", "))
	writeField(&b, "Special instructions", profile.SpecialInstructions)

	return strings.TrimRight(b.String(), "\n")
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}

	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}

// logUsage is fire-and-forget: it must never fail or delay the calling
// operation, so it runs detached and only logs its own failures.
func (o *Orchestrator) logUsage(workspaceID string, result models.AIResult) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		usage := &models.AIUsage{
			WorkspaceID:   workspaceID,
			Provider:      result.Provider,
			Model:         result.Model,
			InputTokens:   result.InputTokens,
			OutputTokens:  result.OutputTokens,
			EstimatedCost: EstimateCost(result.Model, result.InputTokens, result.OutputTokens),
		}

		if err := o.store.RecordAIUsage(ctx, usage); err != nil {
			o.logger.Warn("Failed to record ai usage", "workspace_id", workspaceID, "error", err)
		}

		tokens := int64(result.InputTokens + result.OutputTokens)
		if err := o.budget.Record(ctx, workspaceID, tokens); err != nil {
			o.logger.Warn("Failed to record budget consumption", "workspace_id", workspaceID, "error", err)
		}
	}()
}

func stringAt(m map[string]any, key string) string {
	s, _ := m[key].(string)

	return s
}

func stringsAt(m map[string]any, key string) []string {
	items, ok := m[key].([]any)
	if !ok {
		return nil
	}

	result := make([]string, 0, len(items))

	for _, item := range items {
		if s, ok := item.(string); ok {
			result = append(result, s)
		}
	}

	return result
}
