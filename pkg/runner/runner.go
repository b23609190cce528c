// Package runner provides the in-process durable step runner used by the
// worker. Production deployments can substitute an external durable runner
// behind the same contract.
package runner

import (
	"context"
	"sync"

	"github.com/cadenzahq/cadenza/pkg/protocol"
)

type memoEntry struct {
	result any
	err    error
}

// MemoRunner memoizes step results by name within one execution: a step that
// already committed returns its recorded result without re-running, so a
// retried execution resumes past completed steps. Errors are not memoized;
// a failed step runs again on the next attempt, which is what makes the
// runner at-least-once.
type MemoRunner struct {
	mu    sync.Mutex
	steps map[string]memoEntry
}

func NewMemoRunner() *MemoRunner {
	return &MemoRunner{steps: make(map[string]memoEntry)}
}

var _ protocol.StepRunner = (*MemoRunner)(nil)

func (r *MemoRunner) Run(ctx context.Context, stepName string, fn func(context.Context) (any, error)) (any, error) {
	r.mu.Lock()
	if entry, ok := r.steps[stepName]; ok {
		r.mu.Unlock()

		return entry.result, entry.err
	}
	r.mu.Unlock()

	result, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.steps[stepName] = memoEntry{result: result}
	r.mu.Unlock()

	return result, nil
}

// Completed reports whether a named step has committed. Test hook.
func (r *MemoRunner) Completed(stepName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.steps[stepName]

	return ok
}

// Passthrough runs every step directly with no memoization. Used where the
// surrounding scheduler already guarantees single execution.
type Passthrough struct{}

var _ protocol.StepRunner = Passthrough{}

func (Passthrough) Run(ctx context.Context, _ string, fn func(context.Context) (any, error)) (any, error) {
	return fn(ctx)
}
