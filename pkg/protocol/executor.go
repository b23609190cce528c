// Package protocol defines the interfaces and contracts node executors and
// their collaborators implement.
package protocol

import (
	"context"
	"log/slog"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/cadenzahq/cadenza/pkg/template"
)

// Executor is the contract every action type implements. Protocol: publish
// loading first, run business work as idempotent units through the step
// runner, publish success and return the context deltas, or publish error
// exactly once and return the error unmodified. Executors never retry
// internally and never swallow a business-rule violation.
type Executor interface {
	Execute(ctx context.Context, deps Deps, req models.NodeRequest, logger *slog.Logger) (map[string]any, error)
}

// ExecutorFactory creates executor instances and provides metadata about the
// action type.
type ExecutorFactory interface {
	// Create creates a new executor instance with the given configuration.
	Create(config map[string]any) (Executor, error)

	// ID returns the unique identifier for this action type.
	ID() string

	// Name returns the human-readable name for this action type.
	Name() string

	// Description returns a description of what this action does.
	Description() string

	// Schema returns the JSON schema for configuring this action, including
	// the context keys it reads and writes.
	Schema() map[string]any
}

// Deps carries the collaborators an executor may use. All fields are
// injected so tests can substitute fakes.
type Deps struct {
	Store      persistence.Persistence
	Runner     StepRunner
	Status     StatusPublisher
	Dispatcher TriggerDispatcher
	Email      EmailTransport
	Sms        SmsTransport
	AI         AIOrchestrator
	Resolver   *template.Resolver
}
