package workflow

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/protocol"
	"github.com/cadenzahq/cadenza/pkg/registry"
	"github.com/cadenzahq/cadenza/pkg/status"
)

type stubExecutor struct {
	exec func(ctx context.Context, deps protocol.Deps, req models.NodeRequest) (map[string]any, error)
}

func (e stubExecutor) Execute(ctx context.Context, deps protocol.Deps, req models.NodeRequest, _ *slog.Logger) (map[string]any, error) {
	return e.exec(ctx, deps, req)
}

type stubFactory struct {
	id   string
	exec func(ctx context.Context, deps protocol.Deps, req models.NodeRequest) (map[string]any, error)
}

func (f *stubFactory) Create(_ map[string]any) (protocol.Executor, error) {
	return stubExecutor{exec: f.exec}, nil
}

func (f *stubFactory) ID() string          { return f.id }
func (f *stubFactory) Name() string        { return f.id }
func (f *stubFactory) Description() string { return "test action " + f.id }

func (f *stubFactory) Schema() map[string]any {
	return map[string]any{"type": "object"}
}

func newChainExecutor(t *testing.T, factories ...protocol.ExecutorFactory) *ChainExecutor {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	reg := registry.NewRegistry(logger)
	for _, f := range factories {
		reg.Register(f)
	}

	deps := protocol.Deps{Status: status.Noop{}}
	tracer := noop.NewTracerProvider().Tracer("test")

	return NewChainExecutor(reg, deps, tracer, logger)
}

func node(id, nodeType string) models.WorkflowNode {
	return models.WorkflowNode{
		ID:      id,
		Type:    nodeType,
		Name:    id,
		Config:  map[string]any{},
		Enabled: true,
	}
}

func TestExecuteMergesDeltasInOrder(t *testing.T) {
	chains := newChainExecutor(t,
		&stubFactory{id: "first", exec: func(_ context.Context, _ protocol.Deps, _ models.NodeRequest) (map[string]any, error) {
			return map[string]any{"stage": "lead", "source": "form"}, nil
		}},
		&stubFactory{id: "second", exec: func(_ context.Context, _ protocol.Deps, req models.NodeRequest) (map[string]any, error) {
			assert.Equal(t, "lead", req.Context.Values["stage"])

			return map[string]any{"stage": "customer"}, nil
		}},
	)

	execCtx, err := chains.Execute(context.Background(), "ws-1",
		[]models.WorkflowNode{node("n1", "first"), node("n2", "second")}, nil)
	require.NoError(t, err)

	assert.Equal(t, "ws-1", execCtx.WorkspaceID)
	assert.Equal(t, "customer", execCtx.Values["stage"])
	assert.Equal(t, "form", execCtx.Values["source"])
	assert.NotEmpty(t, execCtx.ID)
}

func TestExecutePassesTriggerDataToEveryNode(t *testing.T) {
	seen := 0

	chains := newChainExecutor(t,
		&stubFactory{id: "inspect", exec: func(_ context.Context, _ protocol.Deps, req models.NodeRequest) (map[string]any, error) {
			seen++
			assert.Equal(t, "c1", req.Context.TriggerData["contactId"])

			return nil, nil
		}},
	)

	_, err := chains.Execute(context.Background(), "ws-1",
		[]models.WorkflowNode{node("n1", "inspect"), node("n2", "inspect")},
		map[string]any{"contactId": "c1"})
	require.NoError(t, err)
	assert.Equal(t, 2, seen)
}

func TestExecuteSkipsDisabledNodes(t *testing.T) {
	ran := 0

	chains := newChainExecutor(t,
		&stubFactory{id: "count", exec: func(_ context.Context, _ protocol.Deps, _ models.NodeRequest) (map[string]any, error) {
			ran++

			return nil, nil
		}},
	)

	disabled := node("n2", "count")
	disabled.Enabled = false

	execCtx, err := chains.Execute(context.Background(), "ws-1",
		[]models.WorkflowNode{node("n1", "count"), disabled, node("n3", "count")}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, ran)
	assert.NotNil(t, execCtx.Values)
}

func TestExecuteAbortsOnFirstError(t *testing.T) {
	boom := errors.New("transport unavailable")
	ranAfterError := false

	chains := newChainExecutor(t,
		&stubFactory{id: "ok", exec: func(_ context.Context, _ protocol.Deps, _ models.NodeRequest) (map[string]any, error) {
			return map[string]any{"stage": "lead"}, nil
		}},
		&stubFactory{id: "fail", exec: func(_ context.Context, _ protocol.Deps, _ models.NodeRequest) (map[string]any, error) {
			return nil, boom
		}},
		&stubFactory{id: "after", exec: func(_ context.Context, _ protocol.Deps, _ models.NodeRequest) (map[string]any, error) {
			ranAfterError = true

			return nil, nil
		}},
	)

	execCtx, err := chains.Execute(context.Background(), "ws-1",
		[]models.WorkflowNode{node("n1", "ok"), node("n2", "fail"), node("n3", "after")}, nil)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "node n2")
	assert.False(t, ranAfterError)

	// Partial progress stays visible to the caller.
	assert.Equal(t, "lead", execCtx.Values["stage"])
}

func TestExecuteFailsOnUnknownNodeType(t *testing.T) {
	chains := newChainExecutor(t)

	_, err := chains.Execute(context.Background(), "ws-1",
		[]models.WorkflowNode{node("n1", "doesNotExist")}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doesNotExist")
}

func TestExecuteScopesStepMemoizationToOneExecution(t *testing.T) {
	runs := 0

	chains := newChainExecutor(t,
		&stubFactory{id: "step", exec: func(ctx context.Context, deps protocol.Deps, _ models.NodeRequest) (map[string]any, error) {
			_, err := deps.Runner.Run(ctx, "shared-step", func(context.Context) (any, error) {
				runs++

				return nil, nil
			})

			return nil, err
		}},
	)

	nodes := []models.WorkflowNode{node("n1", "step"), node("n2", "step")}

	// Both nodes share one memoized step within an execution.
	_, err := chains.Execute(context.Background(), "ws-1", nodes, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, runs)

	// A new execution gets a fresh runner.
	_, err = chains.Execute(context.Background(), "ws-1", nodes, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, runs)
}
