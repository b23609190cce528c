package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cadenzahq/cadenza/pkg/cmd"
	"github.com/cadenzahq/cadenza/pkg/enrollment"
	"github.com/cadenzahq/cadenza/pkg/eventbus"
	"github.com/cadenzahq/cadenza/pkg/events"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/otelhelper"
	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/cadenzahq/cadenza/pkg/protocol"
	"github.com/cadenzahq/cadenza/pkg/registry"
	"github.com/cadenzahq/cadenza/pkg/template"
	"github.com/cadenzahq/cadenza/pkg/workflow"
)

// Worker consumes business trigger events and runs the automation they
// fire: sequence auto-enrollment, and chained workflow reactions carried by
// category-added triggers.
type Worker struct {
	id           string
	busProvider  string
	store        persistence.Persistence
	engine       *enrollment.Engine
	registry     *registry.Registry
	orchestrator protocol.AIOrchestrator
	resolver     *template.Resolver
	logger       *slog.Logger
}

func NewWorker(
	id, busProvider string,
	store persistence.Persistence,
	engine *enrollment.Engine,
	reg *registry.Registry,
	orchestrator protocol.AIOrchestrator,
	resolver *template.Resolver,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		id:           id,
		busProvider:  busProvider,
		store:        store,
		engine:       engine,
		registry:     reg,
		orchestrator: orchestrator,
		resolver:     resolver,
		logger:       logger,
	}
}

// Run subscribes to the trigger topic and blocks until the context is
// cancelled or an interrupt arrives.
func (w *Worker) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer, err := otelhelper.NewTracer(ctx, "cadenza-worker")
	if err != nil {
		w.logger.WarnContext(ctx, "Tracing disabled", "error", err)

		tracer = noop.NewTracerProvider().Tracer("cadenza-worker")
	}

	statusPub, sub := cmd.NewChannel(w.busProvider, w.logger)
	bus := eventbus.NewWatermillEventBus(statusPub, sub)

	defer func() {
		if err := bus.Close(); err != nil {
			w.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	deps := cmd.NewDeps(w.store, statusPub, bus, w.orchestrator, w.resolver, w.logger)
	chains := workflow.NewChainExecutor(w.registry, deps, tracer, w.logger)

	_ = bus.Handle(events.ContactCreatedEvent, func(ctx context.Context, event any) error {
		e, ok := event.(*events.ContactCreated)
		if !ok {
			return fmt.Errorf("unexpected event payload for %s", events.ContactCreatedEvent)
		}

		return w.handleTrigger(ctx, e.WorkspaceID, models.TriggerContactCreated, e.Source, e.ContactID)
	})

	_ = bus.Handle(events.StageChangedEvent, func(ctx context.Context, event any) error {
		e, ok := event.(*events.StageChanged)
		if !ok {
			return fmt.Errorf("unexpected event payload for %s", events.StageChangedEvent)
		}

		return w.handleTrigger(ctx, e.WorkspaceID, models.TriggerStageChanged, e.NewStage, e.ContactID)
	})

	_ = bus.Handle(events.KeywordMatchedEvent, func(ctx context.Context, event any) error {
		e, ok := event.(*events.KeywordMatched)
		if !ok {
			return fmt.Errorf("unexpected event payload for %s", events.KeywordMatchedEvent)
		}

		return w.handleTrigger(ctx, e.WorkspaceID, models.TriggerKeywordMatched, e.Keyword, e.ContactID)
	})

	_ = bus.Handle(events.CategoryAddedEvent, func(ctx context.Context, event any) error {
		e, ok := event.(*events.CategoryAdded)
		if !ok {
			return fmt.Errorf("unexpected event payload for %s", events.CategoryAddedEvent)
		}

		return w.handleCategoryAdded(ctx, chains, e)
	})

	if err := bus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to trigger topic: %w", err)
	}

	w.logger.InfoContext(ctx, "Worker started, consuming trigger events")

	<-ctx.Done()

	w.logger.Info("Worker shutting down")

	return nil
}

// handleTrigger runs sequence auto-enrollment for one business event.
func (w *Worker) handleTrigger(ctx context.Context, workspaceID string, triggerType models.TriggerType, triggerValue, contactID string) error {
	result, err := w.engine.HandleTrigger(ctx, workspaceID, triggerType, triggerValue, contactID)
	if err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Trigger processed",
		"trigger_type", triggerType,
		"contact_id", contactID,
		"enrolled", result.Enrolled,
		"failed", result.Failed,
	)

	return nil
}

// handleCategoryAdded runs the chained-workflow reaction. Category triggers
// never enroll into sequences; they exist to fan out node chains, so the
// trigger depth must carry through to any triggers those nodes fire.
func (w *Worker) handleCategoryAdded(ctx context.Context, chains *workflow.ChainExecutor, e *events.CategoryAdded) error {
	nodes, err := w.categoryWorkflowNodes(ctx, e)
	if err != nil {
		return err
	}

	if len(nodes) == 0 {
		return nil
	}

	_, err = chains.Execute(ctx, e.WorkspaceID, nodes, map[string]any{
		"contactId":    e.ContactID,
		"category":     e.Category,
		"triggerDepth": e.TriggerDepth,
	})

	return err
}

// categoryWorkflowNodes resolves the node chain configured for a category
// trigger. Stored workflow definitions live outside this service; the
// built-in reaction logs an activity so category automation is observable
// end to end.
func (w *Worker) categoryWorkflowNodes(ctx context.Context, e *events.CategoryAdded) ([]models.WorkflowNode, error) {
	return []models.WorkflowNode{
		{
			ID:      "log-category-" + e.ID,
			Type:    models.NodeTypeUpdateContact,
			Name:    "Log category membership",
			Enabled: true,
			Config: map[string]any{
				"action": "log_note",
				"note":   "Added to category " + e.Category,
			},
		},
	}, nil
}
