// Package enrollment implements the drip-sequence enrollment engine: the
// guard pipeline that decides whether a contact may enter a sequence, bulk
// audience enrollment, and trigger-driven auto-enrollment.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
)

// SkipReason explains why a contact was not enrolled. Reasons are reported
// in guard order: the first failing guard wins.
type SkipReason string

const (
	SkipSequenceInactive  SkipReason = "sequence_inactive"
	SkipNoSteps           SkipReason = "no_steps"
	SkipWorkspaceMismatch SkipReason = "workspace_mismatch"
	SkipOptedOut          SkipReason = "opted_out"
	SkipAudienceMismatch  SkipReason = "audience_mismatch"
	SkipFrequencyCap      SkipReason = "frequency_cap"
	SkipAlreadyEnrolled   SkipReason = "already_enrolled"
)

// Result is the outcome of one enrollment attempt. Exactly one of Enrollment
// and Skipped is set.
type Result struct {
	Enrollment *models.Enrollment `json:"enrollment,omitempty"`
	Skipped    SkipReason         `json:"skipped,omitempty"`
}

// BulkResult aggregates a bulk or trigger-driven enrollment run.
type BulkResult struct {
	Enrolled int                `json:"enrolled"`
	Skipped  map[SkipReason]int `json:"skipped"`
	Failed   int                `json:"failed"`
}

func newBulkResult() *BulkResult {
	return &BulkResult{Skipped: map[SkipReason]int{}}
}

func (r *BulkResult) add(res Result) {
	if res.Skipped != "" {
		r.Skipped[res.Skipped]++
		return
	}

	r.Enrolled++
}

// Engine runs the enrollment guard pipeline against the store.
type Engine struct {
	store  persistence.Persistence
	logger *slog.Logger
	now    func() time.Time
}

func NewEngine(store persistence.Persistence, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logger.With("module", "enrollment"),
		now:    time.Now,
	}
}

// EnrollContact runs the full guard pipeline for one contact and creates the
// enrollment when every guard passes. A skip is not an error: callers get a
// Result with the reason. Errors are reserved for missing records and store
// failures.
func (e *Engine) EnrollContact(ctx context.Context, sequenceID, contactID string) (Result, error) {
	sequence, err := e.store.SequenceByID(ctx, sequenceID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load sequence %s: %w", sequenceID, err)
	}

	// Structural sequence guards come before the contact load: an inactive
	// or empty sequence reports its skip reason regardless of contact state.
	if reason := sequenceGuard(sequence); reason != "" {
		return Result{Skipped: reason}, nil
	}

	contact, err := e.store.ContactByID(ctx, contactID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load contact %s: %w", contactID, err)
	}

	return e.enroll(ctx, sequence, contact)
}

func (e *Engine) enroll(ctx context.Context, sequence *models.Sequence, contact *models.Contact) (Result, error) {
	if reason, err := e.guard(ctx, sequence, contact); err != nil {
		return Result{}, err
	} else if reason != "" {
		e.logger.DebugContext(ctx, "Enrollment skipped",
			"sequence_id", sequence.ID,
			"contact_id", contact.ID,
			"reason", reason,
		)

		return Result{Skipped: reason}, nil
	}

	now := e.now()
	firstStepAt := now.Add(time.Duration(sequence.Steps[0].DelayMinutes) * time.Minute)

	enrollment := &models.Enrollment{
		SequenceID:  sequence.ID,
		ContactID:   contact.ID,
		WorkspaceID: sequence.WorkspaceID,
		Status:      models.EnrollmentActive,
		CurrentStep: 0,
		NextStepAt:  &firstStepAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := e.store.CreateEnrollment(ctx, enrollment); err != nil {
		// The guard is advisory; the store's uniqueness constraint is the
		// authoritative dedupe under concurrent enrollment.
		if persistence.IsEnrollmentExists(err) {
			return Result{Skipped: SkipAlreadyEnrolled}, nil
		}

		return Result{}, fmt.Errorf("failed to create enrollment: %w", err)
	}

	e.logger.InfoContext(ctx, "Contact enrolled",
		"sequence_id", sequence.ID,
		"contact_id", contact.ID,
		"enrollment_id", enrollment.ID,
		"next_step_at", firstStepAt,
	)

	return Result{Enrollment: enrollment}, nil
}

// sequenceGuard evaluates the guards that depend only on the sequence.
// These run first in the pipeline and need no contact.
func sequenceGuard(sequence *models.Sequence) SkipReason {
	if !sequence.IsActive() {
		return SkipSequenceInactive
	}

	if len(sequence.Steps) == 0 {
		return SkipNoSteps
	}

	return ""
}

// guard evaluates the ordered guard pipeline. The empty reason means all
// guards passed.
func (e *Engine) guard(ctx context.Context, sequence *models.Sequence, contact *models.Contact) (SkipReason, error) {
	if reason := sequenceGuard(sequence); reason != "" {
		return reason, nil
	}

	if sequence.WorkspaceID != contact.WorkspaceID {
		return SkipWorkspaceMismatch, nil
	}

	optedOut, err := e.store.IsContactOptedOut(ctx, contact.ID)
	if err != nil {
		return "", fmt.Errorf("failed to check opt-out state: %w", err)
	}

	if optedOut {
		return SkipOptedOut, nil
	}

	matches, err := e.matchesAudience(ctx, sequence, contact)
	if err != nil {
		return "", err
	}

	if !matches {
		return SkipAudienceMismatch, nil
	}

	if sequence.FrequencyCapDays > 0 {
		latest, err := e.store.LatestEnrollment(ctx, sequence.ID, contact.ID)
		if err != nil && !persistence.IsNotFound(err) {
			return "", fmt.Errorf("failed to load latest enrollment: %w", err)
		}

		if latest != nil {
			capWindow := time.Duration(sequence.FrequencyCapDays) * 24 * time.Hour
			if e.now().Sub(latest.CreatedAt) < capWindow {
				return SkipFrequencyCap, nil
			}
		}
	}

	active, err := e.store.ActiveEnrollment(ctx, sequence.ID, contact.ID)
	if err != nil && !persistence.IsNotFound(err) {
		return "", fmt.Errorf("failed to check active enrollment: %w", err)
	}

	if active != nil {
		return SkipAlreadyEnrolled, nil
	}

	return "", nil
}

// matchesAudience checks the sequence's audience filter against the contact.
func (e *Engine) matchesAudience(ctx context.Context, sequence *models.Sequence, contact *models.Contact) (bool, error) {
	switch sequence.AudienceType {
	case models.AudienceAll:
		return true, nil

	case models.AudienceStage:
		return contact.Stage == sequence.AudienceFilterValue, nil

	case models.AudienceCategory:
		has, err := e.store.ContactHasCategory(ctx, contact.ID, sequence.AudienceFilterValue)
		if err != nil {
			return false, fmt.Errorf("failed to check category membership: %w", err)
		}

		return has, nil

	case models.AudienceInactive:
		// Inactive means no recorded contact within the configured number of
		// days. Contacts never contacted qualify.
		days := parseDays(sequence.AudienceFilterValue)
		if contact.LastContactedAt == nil {
			return true, nil
		}

		return e.now().Sub(*contact.LastContactedAt) >= time.Duration(days)*24*time.Hour, nil

	default:
		return false, nil
	}
}

// EnrollAudience bulk-enrolls every workspace contact matching the sequence
// audience. Contacts messaged by any campaign inside the frequency-cap
// window are excluded even when their enrollment history would permit
// re-entry. Per-contact failures are counted, logged and do not abort the
// run.
func (e *Engine) EnrollAudience(ctx context.Context, sequenceID string) (*BulkResult, error) {
	sequence, err := e.store.SequenceByID(ctx, sequenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sequence %s: %w", sequenceID, err)
	}

	contacts, err := e.store.ContactsByWorkspace(ctx, sequence.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspace contacts: %w", err)
	}

	result := newBulkResult()

	for _, contact := range contacts {
		capped, err := e.recentlyMessaged(ctx, sequence, contact.ID)
		if err != nil {
			result.Failed++
			e.logger.ErrorContext(ctx, "Bulk enrollment check failed",
				"sequence_id", sequence.ID, "contact_id", contact.ID, "error", err)

			continue
		}

		if capped {
			result.Skipped[SkipFrequencyCap]++
			continue
		}

		res, err := e.enroll(ctx, sequence, contact)
		if err != nil {
			result.Failed++
			e.logger.ErrorContext(ctx, "Bulk enrollment failed",
				"sequence_id", sequence.ID, "contact_id", contact.ID, "error", err)

			continue
		}

		result.add(res)
	}

	e.logger.InfoContext(ctx, "Bulk enrollment completed",
		"sequence_id", sequence.ID,
		"enrolled", result.Enrolled,
		"failed", result.Failed,
	)

	return result, nil
}

func (e *Engine) recentlyMessaged(ctx context.Context, sequence *models.Sequence, contactID string) (bool, error) {
	if sequence.FrequencyCapDays == 0 {
		return false, nil
	}

	last, err := e.store.LastCampaignMessageAt(ctx, contactID)
	if err != nil {
		return false, fmt.Errorf("failed to load last campaign message: %w", err)
	}

	if last == nil {
		return false, nil
	}

	capWindow := time.Duration(sequence.FrequencyCapDays) * 24 * time.Hour

	return e.now().Sub(*last) < capWindow, nil
}

// HandleTrigger enrolls the contact into every active sequence in the
// workspace configured for the trigger. A failure in one sequence does not
// stop the others.
func (e *Engine) HandleTrigger(ctx context.Context, workspaceID string, triggerType models.TriggerType, triggerValue, contactID string) (*BulkResult, error) {
	sequences, err := e.store.ActiveSequencesByTrigger(ctx, workspaceID, triggerType)
	if err != nil {
		return nil, fmt.Errorf("failed to load sequences for trigger %s: %w", triggerType, err)
	}

	contact, err := e.store.ContactByID(ctx, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to load contact %s: %w", contactID, err)
	}

	result := newBulkResult()

	for _, sequence := range sequences {
		if sequence.TriggerValue != "" && sequence.TriggerValue != triggerValue {
			continue
		}

		res, err := e.enroll(ctx, sequence, contact)
		if err != nil {
			result.Failed++
			e.logger.ErrorContext(ctx, "Trigger enrollment failed",
				"sequence_id", sequence.ID, "contact_id", contactID, "error", err)

			continue
		}

		result.add(res)
	}

	return result, nil
}

// Stop transitions an active enrollment to stopped. Terminal enrollments
// are left untouched and reported via ErrNotActive.
func (e *Engine) Stop(ctx context.Context, enrollmentID string) (*models.Enrollment, error) {
	enrollment, err := e.store.EnrollmentByID(ctx, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrollment %s: %w", enrollmentID, err)
	}

	if !enrollment.CanTransition(models.EnrollmentStopped) {
		return nil, fmt.Errorf("enrollment %s: %w (status %s)", enrollmentID, ErrNotActive, enrollment.Status)
	}

	enrollment.Status = models.EnrollmentStopped
	enrollment.NextStepAt = nil
	enrollment.UpdatedAt = e.now()

	if err := e.store.UpdateEnrollment(ctx, enrollment); err != nil {
		return nil, fmt.Errorf("failed to update enrollment: %w", err)
	}

	e.logger.InfoContext(ctx, "Enrollment stopped", "enrollment_id", enrollmentID)

	return enrollment, nil
}

// ErrNotActive reports a stop request against a terminal enrollment.
var ErrNotActive = errors.New("enrollment is not active")

func parseDays(value string) int {
	days, err := strconv.Atoi(value)
	if err != nil || days <= 0 {
		return defaultInactiveDays
	}

	return days
}

// defaultInactiveDays applies when an inactive-audience filter value is
// missing or malformed.
const defaultInactiveDays = 30
