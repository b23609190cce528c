// Package executors carries the error taxonomy shared by the concrete node
// executors and the status-publication protocol they all follow.
package executors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/protocol"
)

// Configuration errors: the node cannot run as configured.
var (
	ErrMissingContact   = errors.New("no contact in execution context")
	ErrNoEmailAddress   = errors.New("contact has no email address")
	ErrNoPhoneNumber    = errors.New("contact has no phone number")
	ErrNoSenderAddress  = errors.New("workspace has no configured sender address")
	ErrNoOutboundNumber = errors.New("workspace has no assigned outbound number")
	ErrEmptyTemplate    = errors.New("template resolved to empty text")
	ErrUnknownAction    = errors.New("unknown update action")
)

// Policy violations: the node is configured correctly but the operation is
// not permitted.
var (
	ErrContactOptedOut = errors.New("contact has opted out")
)

// IsConfigurationError checks for a missing-input or empty-template error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrMissingContact) ||
		errors.Is(err, ErrNoEmailAddress) ||
		errors.Is(err, ErrNoPhoneNumber) ||
		errors.Is(err, ErrNoSenderAddress) ||
		errors.Is(err, ErrNoOutboundNumber) ||
		errors.Is(err, ErrEmptyTemplate) ||
		errors.Is(err, ErrUnknownAction)
}

// Run wraps an executor body in the status protocol: loading before any
// work, then exactly one success or error publish. Errors propagate
// unmodified; publishes never block the business path.
func Run(
	ctx context.Context,
	deps protocol.Deps,
	req models.NodeRequest,
	logger *slog.Logger,
	fn func(context.Context) (map[string]any, error),
) (map[string]any, error) {
	deps.Status.Publish(req.NodeID, models.NodeStatusLoading)

	deltas, err := fn(ctx)
	if err != nil {
		deps.Status.Publish(req.NodeID, models.NodeStatusError)
		logger.Error("Node execution failed", "node_id", req.NodeID, "error", err)

		return nil, err
	}

	deps.Status.Publish(req.NodeID, models.NodeStatusSuccess)

	return deltas, nil
}

// TriggerDepth reads the automation-chain depth carried by the triggering
// event, zero when absent.
func TriggerDepth(execCtx models.ExecutionContext) int {
	switch v := execCtx.TriggerData["triggerDepth"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
