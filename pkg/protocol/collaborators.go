package protocol

import (
	"context"

	"github.com/cadenzahq/cadenza/pkg/models"
)

// StepRunner is the durable execution collaborator. Run executes fn as a
// named unit with at-least-once semantics and per-step memoization: within
// one execution, a step name that already committed returns its recorded
// result without re-running fn.
type StepRunner interface {
	Run(ctx context.Context, stepName string, fn func(context.Context) (any, error)) (any, error)
}

// StatusPublisher pushes node status updates to the realtime channel.
// Publication is fire-and-forget: implementations must never block the
// caller on delivery and must swallow delivery failures.
type StatusPublisher interface {
	Publish(nodeID string, status models.NodeStatus)
}

// TriggerDispatcher fires chained workflow executions. Depth counts how many
// automation hops produced this trigger; dispatchers bound it to stop
// recursive chains.
type TriggerDispatcher interface {
	Dispatch(ctx context.Context, triggerType models.TriggerType, payload map[string]any, depth int) error
}

// EmailTransport is the outbound email collaborator.
type EmailTransport interface {
	SendEmail(ctx context.Context, from, to, subject, body string) error
}

// SmsTransport is the outbound SMS collaborator.
type SmsTransport interface {
	SendSms(ctx context.Context, from, to, body string) error
}

// AIOrchestrator is the AI layer the aiNode executor delegates to.
type AIOrchestrator interface {
	Generate(ctx context.Context, req models.AIRequest, execCtx models.ExecutionContext) (models.AIResult, error)
}
