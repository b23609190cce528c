// Package scheduler advances due drip-sequence enrollments. A cron tick
// fetches active enrollments whose next step is due, evaluates each step's
// condition, executes the step through the channel node executors and moves
// the enrollment forward or into a terminal state.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cadenzahq/cadenza/pkg/executors"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/cadenzahq/cadenza/pkg/protocol"
	"github.com/cadenzahq/cadenza/pkg/registry"
	"github.com/cadenzahq/cadenza/pkg/runner"
	"github.com/cadenzahq/cadenza/pkg/template"
)

// DefaultBatchLimit caps how many due enrollments one tick processes.
const DefaultBatchLimit = 200

type Scheduler struct {
	store    persistence.Persistence
	registry *registry.Registry
	deps     protocol.Deps
	resolver *template.Resolver
	logger   *slog.Logger

	cronSpec   string
	batchLimit int
	now        func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	started bool
}

func NewScheduler(store persistence.Persistence, reg *registry.Registry, deps protocol.Deps, resolver *template.Resolver, cronSpec string, logger *slog.Logger) *Scheduler {
	if cronSpec == "" {
		cronSpec = "* * * * *"
	}

	return &Scheduler{
		store:      store,
		registry:   reg,
		deps:       deps,
		resolver:   resolver,
		logger:     logger.With("module", "scheduler"),
		cronSpec:   cronSpec,
		batchLimit: DefaultBatchLimit,
		now:        time.Now,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	c := cron.New()

	_, err := c.AddFunc(s.cronSpec, func() {
		s.Tick(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", s.cronSpec, err)
	}

	c.Start()
	s.cron = c
	s.started = true

	s.logger.Info("Enrollment scheduler started", "cron", s.cronSpec)

	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	stopCtx := s.cron.Stop()

	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}

	s.started = false
	s.logger.Info("Enrollment scheduler stopped")

	return nil
}

// Tick processes one batch of due enrollments. Failures advancing one
// enrollment are logged and never block the rest of the batch.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now().UTC()

	due, err := s.store.DueEnrollments(ctx, now, s.batchLimit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to fetch due enrollments", "error", err)

		return
	}

	if len(due) == 0 {
		return
	}

	s.logger.InfoContext(ctx, "Processing due enrollments", "count", len(due))

	for _, enrollment := range due {
		if err := s.Advance(ctx, enrollment); err != nil {
			s.logger.ErrorContext(ctx, "Failed to advance enrollment",
				"enrollment_id", enrollment.ID,
				"sequence_id", enrollment.SequenceID,
				"error", err,
			)
		}
	}
}

// Advance executes the enrollment's current step and moves it forward.
// Terminal states are never re-entered; a paused or archived sequence leaves
// the enrollment untouched until the sequence is active again.
func (s *Scheduler) Advance(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.Status != models.EnrollmentActive {
		return nil
	}

	sequence, err := s.store.SequenceByID(ctx, enrollment.SequenceID)
	if err != nil {
		return fmt.Errorf("failed to load sequence: %w", err)
	}

	if !sequence.IsActive() {
		s.logger.DebugContext(ctx, "Sequence not active, enrollment held",
			"enrollment_id", enrollment.ID, "sequence_status", sequence.Status)

		return nil
	}

	optedOut, err := s.store.IsContactOptedOut(ctx, enrollment.ContactID)
	if err != nil {
		return fmt.Errorf("opt-out check failed: %w", err)
	}

	if optedOut {
		return s.terminate(ctx, enrollment, models.EnrollmentOptedOut)
	}

	if enrollment.CurrentStep >= len(sequence.Steps) {
		return s.terminate(ctx, enrollment, models.EnrollmentCompleted)
	}

	step := sequence.Steps[enrollment.CurrentStep]
	execCtx := s.executionContext(enrollment)

	send, err := s.resolver.EvaluateCondition(step.Condition, execCtx)
	if err != nil {
		// A broken condition never fires the step; the enrollment still
		// advances so it cannot wedge the sequence.
		s.logger.WarnContext(ctx, "Step condition failed, step skipped",
			"enrollment_id", enrollment.ID, "step", enrollment.CurrentStep, "error", err)

		send = false
	}

	if send {
		if err := s.executeStep(ctx, enrollment, step, execCtx); err != nil {
			return s.handleStepError(ctx, enrollment, err)
		}
	}

	return s.advancePointer(ctx, enrollment, sequence)
}

// executionContext builds the context a channel step executes against.
func (s *Scheduler) executionContext(enrollment *models.Enrollment) models.ExecutionContext {
	return models.ExecutionContext{
		ID:          fmt.Sprintf("enr-%s-step-%d", enrollment.ID, enrollment.CurrentStep),
		WorkspaceID: enrollment.WorkspaceID,
		Values: map[string]any{
			"contactId":    enrollment.ContactID,
			"sequenceId":   enrollment.SequenceID,
			"enrollmentId": enrollment.ID,
		},
	}
}

// executeStep runs the step through the matching channel node executor, so
// drip sends share the opt-out re-check, templating and record-keeping of
// ad hoc workflow sends.
func (s *Scheduler) executeStep(ctx context.Context, enrollment *models.Enrollment, step models.SequenceStep, execCtx models.ExecutionContext) error {
	nodeType, config := stepNode(step)

	executor, err := s.registry.CreateExecutor(nodeType, config)
	if err != nil {
		return fmt.Errorf("failed to build step executor: %w", err)
	}

	// Fresh memoization scope per step execution.
	deps := s.deps
	deps.Runner = runner.NewMemoRunner()

	_, err = executor.Execute(ctx, deps, models.NodeRequest{
		NodeID:  execCtx.ID,
		Type:    nodeType,
		Config:  config,
		Context: execCtx,
	}, s.logger)

	return err
}

func stepNode(step models.SequenceStep) (string, map[string]any) {
	if step.Channel == models.ChannelEmail {
		return models.NodeTypeSendEmail, map[string]any{
			"subject": step.Subject,
			"body":    step.Body,
		}
	}

	return models.NodeTypeSendSms, map[string]any{
		"body": step.Body,
	}
}

// handleStepError maps step failures onto enrollment state. Opt-out raised
// at send time ends the enrollment; configuration errors (no phone, no
// email, empty template) stop it since retrying cannot help; anything else
// is treated as transient and retried next tick.
func (s *Scheduler) handleStepError(ctx context.Context, enrollment *models.Enrollment, err error) error {
	switch {
	case errors.Is(err, executors.ErrContactOptedOut):
		return s.terminate(ctx, enrollment, models.EnrollmentOptedOut)

	case executors.IsConfigurationError(err):
		s.logger.WarnContext(ctx, "Step unconfigurable, enrollment stopped",
			"enrollment_id", enrollment.ID, "error", err)

		return s.terminate(ctx, enrollment, models.EnrollmentStopped)

	default:
		return fmt.Errorf("step execution failed: %w", err)
	}
}

func (s *Scheduler) advancePointer(ctx context.Context, enrollment *models.Enrollment, sequence *models.Sequence) error {
	enrollment.CurrentStep++

	if enrollment.CurrentStep >= len(sequence.Steps) {
		return s.terminate(ctx, enrollment, models.EnrollmentCompleted)
	}

	next := s.now().UTC().Add(time.Duration(sequence.Steps[enrollment.CurrentStep].DelayMinutes) * time.Minute)
	enrollment.NextStepAt = &next
	enrollment.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateEnrollment(ctx, enrollment); err != nil {
		return fmt.Errorf("failed to advance enrollment: %w", err)
	}

	s.logger.InfoContext(ctx, "Enrollment advanced",
		"enrollment_id", enrollment.ID,
		"current_step", enrollment.CurrentStep,
		"next_step_at", next,
	)

	return nil
}

func (s *Scheduler) terminate(ctx context.Context, enrollment *models.Enrollment, status models.EnrollmentStatus) error {
	if !enrollment.CanTransition(status) {
		return nil
	}

	enrollment.Status = status
	enrollment.NextStepAt = nil
	enrollment.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateEnrollment(ctx, enrollment); err != nil {
		return fmt.Errorf("failed to update enrollment to %s: %w", status, err)
	}

	s.logger.InfoContext(ctx, "Enrollment reached terminal state",
		"enrollment_id", enrollment.ID, "status", status)

	return nil
}
