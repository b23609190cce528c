// Package providers defines the uniform dispatch interface over
// interchangeable model-provider backends.
package providers

import (
	"context"
	"fmt"

	"github.com/cadenzahq/cadenza/pkg/models"
)

// CompletionRequest is the provider-neutral call shape.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
}

// Client is one model-provider backend. Implementations are injected so
// tests substitute fakes; no ambient singletons.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (models.AIResult, error)
	Provider() string
}

// ProviderError wraps transport and API failures from a backend.
type ProviderError struct {
	Provider string
	Model    string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s (model %s) call failed: %v", e.Provider, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// defaultModels is consulted when a request names a provider but no model.
var defaultModels = map[string]string{
	"openai":    "gpt-4o-mini",
	"anthropic": "claude-sonnet-4-0",
	"google":    "gemini-2.0-flash",
}

// DefaultModel returns the provider's default model, or "" for an unknown
// provider.
func DefaultModel(provider string) string {
	return defaultModels[provider]
}

// Dispatcher routes requests to the registered client for a provider name.
type Dispatcher struct {
	clients map[string]Client
}

func NewDispatcher(clients ...Client) *Dispatcher {
	byName := make(map[string]Client, len(clients))
	for _, client := range clients {
		byName[client.Provider()] = client
	}

	return &Dispatcher{clients: byName}
}

// Dispatch selects the backend, fills in the default model when none is
// given, and returns the uniform result shape.
func (d *Dispatcher) Dispatch(ctx context.Context, provider string, req CompletionRequest) (models.AIResult, error) {
	client, ok := d.clients[provider]
	if !ok {
		return models.AIResult{}, fmt.Errorf("unknown ai provider %q", provider)
	}

	if req.Model == "" {
		req.Model = DefaultModel(provider)
	}

	result, err := client.Complete(ctx, req)
	if err != nil {
		return models.AIResult{}, &ProviderError{Provider: provider, Model: req.Model, Err: err}
	}

	result.Provider = provider
	if result.Model == "" {
		result.Model = req.Model
	}

	return result, nil
}
