// Package workflow runs ordered chains of action nodes against the executor
// registry, folding each node's context deltas into the execution context
// before the next node runs.
package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/otelhelper"
	"github.com/cadenzahq/cadenza/pkg/protocol"
	"github.com/cadenzahq/cadenza/pkg/registry"
	"github.com/cadenzahq/cadenza/pkg/runner"
)

type ChainExecutor struct {
	registry *registry.Registry
	deps     protocol.Deps
	tracer   trace.Tracer
	logger   *slog.Logger
}

func NewChainExecutor(reg *registry.Registry, deps protocol.Deps, tracer trace.Tracer, logger *slog.Logger) *ChainExecutor {
	return &ChainExecutor{
		registry: reg,
		deps:     deps,
		tracer:   tracer,
		logger:   logger.With("module", "chain_executor"),
	}
}

// Execute runs the nodes in order. The first node error aborts the chain;
// earlier nodes' deltas are already committed to their stores and are not
// rolled back. The final merged context is returned alongside the error so
// callers can inspect partial progress.
func (e *ChainExecutor) Execute(ctx context.Context, workspaceID string, nodes []models.WorkflowNode, triggerData map[string]any) (models.ExecutionContext, error) {
	execCtx := models.ExecutionContext{
		ID:          generateExecutionID(),
		WorkspaceID: workspaceID,
		TriggerData: triggerData,
		Values:      map[string]any{},
	}

	logger := e.logger.With("execution_id", execCtx.ID, "workspace_id", workspaceID)
	logger.InfoContext(ctx, "Starting chain execution", "nodes", len(nodes))

	// Step memoization is scoped to this execution.
	deps := e.deps
	deps.Runner = runner.NewMemoRunner()

	for _, node := range nodes {
		if !node.Enabled {
			logger.DebugContext(ctx, "Node is disabled, skipping", "node_id", node.ID)
			continue
		}

		deltas, err := e.executeNode(ctx, deps, node, execCtx, logger)
		if err != nil {
			return execCtx, fmt.Errorf("node %s (%s) failed: %w", node.ID, node.Type, err)
		}

		execCtx = execCtx.Merge(deltas)
	}

	logger.InfoContext(ctx, "Chain execution completed")

	return execCtx, nil
}

func (e *ChainExecutor) executeNode(ctx context.Context, deps protocol.Deps, node models.WorkflowNode, execCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.node",
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, node.Type),
		attribute.String(otelhelper.ExecutionIDKey, execCtx.ID),
		attribute.String(otelhelper.WorkspaceIDKey, execCtx.WorkspaceID),
	)
	defer span.End()

	logger = logger.With("node_id", node.ID, "node_type", node.Type)
	logger.InfoContext(ctx, "Executing node")

	executor, err := e.registry.CreateExecutor(node.Type, node.Config)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	deltas, err := executor.Execute(ctx, deps, models.NodeRequest{
		NodeID:  node.ID,
		Type:    node.Type,
		Config:  node.Config,
		Context: execCtx,
	}, logger)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	logger.InfoContext(ctx, "Node completed", "delta_keys", len(deltas))

	return deltas, nil
}

func generateExecutionID() string {
	return "exec-" + uuid.New().String()[:8]
}
