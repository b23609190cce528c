// Package registry holds the closed, startup-built map of executor
// factories. Dispatch is by action-type string; nothing is reflective and
// nothing can be registered after startup wiring completes.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"

	"github.com/cadenzahq/cadenza/pkg/protocol"
)

type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.ExecutorFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger.With("module", "registry"),
		factories: make(map[string]protocol.ExecutorFactory),
	}
}

func (r *Registry) Register(factory protocol.ExecutorFactory) {
	r.factories[factory.ID()] = factory
}

// CreateExecutor validates config against the factory's schema and builds
// the executor. Unknown action types and schema violations are
// configuration errors raised before any business work runs.
func (r *Registry) CreateExecutor(actionType string, config map[string]any) (protocol.Executor, error) {
	factory, ok := r.factories[actionType]
	if !ok {
		return nil, fmt.Errorf("action type '%s' not registered", actionType)
	}

	if err := r.validateConfig(factory, config); err != nil {
		return nil, err
	}

	return factory.Create(config)
}

// AvailableTypes returns all registered action types.
func (r *Registry) AvailableTypes() []string {
	types := make([]string, 0, len(r.factories))
	for actionType := range r.factories {
		types = append(types, actionType)
	}

	return types
}

// Factory returns the registered factory for an action type.
func (r *Registry) Factory(actionType string) (protocol.ExecutorFactory, bool) {
	factory, ok := r.factories[actionType]

	return factory, ok
}

func (r *Registry) HealthCheck() (map[string]any, bool) {
	return map[string]any{
		"registered_executors": len(r.factories),
	}, len(r.factories) > 0
}

func (r *Registry) validateConfig(factory protocol.ExecutorFactory, config map[string]any) error {
	schema := factory.Schema()
	if schema == nil {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("failed to validate config for action '%s': %w", factory.ID(), err)
	}

	if !result.Valid() {
		first := result.Errors()[0]

		return fmt.Errorf("invalid config for action '%s': %s", factory.ID(), first.String())
	}

	return nil
}
