package enrollment

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func testEngine(t *testing.T) (*Engine, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	engine := NewEngine(store, testLogger())

	return engine, store
}

func seedContact(t *testing.T, store *memory.Store, id, workspaceID string, mutate func(*models.Contact)) {
	t.Helper()

	contact := &models.Contact{
		ID:          id,
		WorkspaceID: workspaceID,
		FirstName:   "Ada",
		Stage:       "lead",
	}
	if mutate != nil {
		mutate(contact)
	}

	require.NoError(t, store.SaveContact(context.Background(), contact))
}

func seedSequence(t *testing.T, store *memory.Store, id, workspaceID string, mutate func(*models.Sequence)) *models.Sequence {
	t.Helper()

	sequence := &models.Sequence{
		ID:           id,
		WorkspaceID:  workspaceID,
		Name:         "Welcome drip",
		Status:       models.SequenceStatusActive,
		AudienceType: models.AudienceAll,
		TriggerType:  models.TriggerManual,
		Steps: []models.SequenceStep{
			{Order: 0, Channel: models.ChannelSms, DelayMinutes: 60, Body: "Hi {first_name}"},
			{Order: 1, Channel: models.ChannelEmail, DelayMinutes: 1440, Subject: "Hello", Body: "Following up"},
		},
	}
	if mutate != nil {
		mutate(sequence)
	}

	require.NoError(t, store.SaveSequence(context.Background(), sequence))

	return sequence
}

func TestEnrollContact_Success(t *testing.T) {
	engine, store := testEngine(t)
	ctx := context.Background()

	seedContact(t, store, "c1", "w1", nil)
	seedSequence(t, store, "s1", "w1", nil)

	result, err := engine.EnrollContact(ctx, "s1", "c1")

	require.NoError(t, err)
	require.NotNil(t, result.Enrollment)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, models.EnrollmentActive, result.Enrollment.Status)
	assert.Equal(t, 0, result.Enrollment.CurrentStep)
	require.NotNil(t, result.Enrollment.NextStepAt)

	// First step delay is applied before the first send.
	delay := time.Until(*result.Enrollment.NextStepAt)
	assert.InDelta(t, time.Hour.Minutes(), delay.Minutes(), 1)
}

func TestEnrollContact_SequenceInactive(t *testing.T) {
	engine, store := testEngine(t)
	ctx := context.Background()

	seedContact(t, store, "c1", "w1", nil)
	seedSequence(t, store, "s1", "w1", func(s *models.Sequence) {
		s.Status = models.SequenceStatusPaused
	})

	result, err := engine.EnrollContact(ctx, "s1", "c1")

	require.NoError(t, err)
	assert.Equal(t, SkipSequenceInactive, result.Skipped)
	assert.Nil(t, result.Enrollment)
}

func TestEnrollContact_NoSteps(t *testing.T) {
	engine, store := testEngine(t)
	ctx := context.Background()

	seedContact(t, store, "c1", "w1", nil)
	seedSequence(t, store, "s1", "w1", func(s *models.Sequence) {
		s.Steps = nil
	})

	result, err := engine.EnrollContact(ctx, "s1", "c1")

	require.NoError(t, err)
	assert.Equal(t, SkipNoSteps, result.Skipped)
}

func TestEnrollContact_SequenceGuardsRunBeforeContactLoad(t *testing.T) {
	engine, store := testEngine(t)
	ctx := context.Background()

	// No contact seeded: the structural skip still wins over NotFound.
	seedSequence(t, store, "s1", "w1", func(s *models.Sequence) {
		s.Status = models.SequenceStatusPaused
	})

	result, err := engine.EnrollContact(ctx, "s1", "missing")

	require.NoError(t, err)
	assert.Equal(t, SkipSequenceInactive, result.Skipped)

	seedSequence(t, store, "s2", "w1", func(s *models.Sequence) {
		s.Steps = nil
	})

	result, err = engine.EnrollContact(ctx, "s2", "missing")

	require.NoError(t, err)
	assert.Equal(t, SkipNoSteps, result.Skipped)
}

func TestEnrollContact_WorkspaceMismatch(t *testing.T) {
	engine, store := testEngine(t)
	ctx := context.Background()

	seedContact(t, store, "c1", "w2", nil)
	seedSequence(t, store, "s1", "w1", nil)

	result, err := engine.EnrollContact(ctx, "s1", "c1")

	require.NoError(t, err)
	assert.Equal(t, SkipWorkspaceMismatch, result.Skipped)
}

func TestEnrollContact_OptedOut(t *testing.T) {
	engine, store := testEngine(t)
	ctx := context.Background()

	seedContact(t, store, "c1", "w1", func(c *models.Contact) {
		c.OptedOut = true
	})
	seedSequence(t, store, "s1", "w1", nil)

	result, err := engine.EnrollContact(ctx, "s1", "c1")

	require.NoError(t, err)
	assert.Equal(t, SkipOptedOut, result.Skipped)
}

func TestEnrollContact_AudienceStage(t *testing.T) {
	engine, store := testEngine(t)
	ctx := context.Background()

	seedContact(t, store, "c1", "w1", func(c *models.Contact) {
		c.Stage = "customer"
	})
	seedSequence(t, store, "s1", "w1", func(s *models.Sequence) {
		s.AudienceType = models.AudienceStage
		s.AudienceFilterValue = "lead"
	})

	result, err := engine.EnrollContact(ctx, "s1", "c1")

	require.NoError(t, err)
	assert.Equal(t, SkipAudienceMismatch, result.Skipped)
}

func TestEnrollContact_AudienceCategory(t *testing.T) {
	engine, store := testEngine(t)
	ctx := context.Background()

	seedContact(t, store, "c1", "w1", nil)
	seedContact(t, store, "c2", "w1", nil)
	seedSequence(t, store, "s1", "w1", func(s *models.Sequence) {
		s.AudienceType = models.AudienceCategory
		s.AudienceFilterValue = "vip"
	})

	category, err := store.UpsertCategory(ctx, "w1", "vip")
	require.NoError(t, err)
	require.NoError(t, store.UpsertContactCategory(ctx, "c1", category.ID))

	result, err := engine.EnrollContact(ctx, "s1", "c1")
	require.NoError(t, err)
	assert.NotNil(t, result.Enrollment)

	result, err = engine.EnrollContact(ctx, "s1", "c2")
	require.NoError(t, err)
	assert.Equal(t, SkipAudienceMismatch, result.Skipped)
}

func TestEnrollContact_AudienceInactive(t *testing.T) {
	engine, store := testEngine(t)
	ctx := context.Background()

	longAgo := time.Now().Add(-90 * 24 * time.Hour)
	recently := time.Now().Add(-2 * 24 * time.Hour)

	seedContact(t, store, "stale", "w1", func(c *models.Contact) {
		c.LastContactedAt = &longAgo
	})
	seedContact(t, store, "fresh", "w1", func(c *models.Contact) {
		c.LastContactedAt = &recently
	})
	seedContact(t, store, "never", "w1", nil)
	seedSequence(t, store, "s1", "w1", func(s *models.Sequence) {
		s.AudienceType = models.AudienceInactive
		s.AudienceFilterValue = "30"
	})

	result, err := engine.EnrollContact(ctx, "s1", "stale")
	require.NoError(t, err)
	assert.NotNil(t, result.Enrollment)

	result, err = engine.EnrollContact(ctx, "s1", "fresh")
	require.NoError(t, err)
	assert.Equal(t, SkipAudienceMismatch, result.Skipped)

	// Contacts with no recorded contact at all qualify as inactive.
	result, err = engine.EnrollContact(ctx, "s1", "never")
	require.NoError(t, err)
	assert.NotNil(t, result.Enrollment)
}

func TestEnrollContact_AlreadyEnrolled(t *testing.T) {
	engine, store := testEngine(t)
	ctx := context.Background()

	seedContact(t, store, "c1", "w1", nil)
	seedSequence(t, store, "s1", "w1", nil)

	first, err := engine.EnrollContact(ctx, "s1", "c1")
	require.NoError(t, err)
	require.NotNil(t, first.Enrollment)

	second, err := engine.EnrollContact(ctx, "s1", "c1")
	require.NoError(t, err)
	assert.Equal(t, SkipAlreadyEnrolled, second.Skipped)
	assert.Nil(t, second.Enrollment)
}

func TestEnrollContact_FrequencyCap(t *testing.T) {
	engine, store := testEngine(t)
	ctx := context.Background()

	seedContact(t, store, "c1", "w1", nil)
	seedSequence(t, store, "s1", "w1", func(s *models.Sequence) {
		s.FrequencyCapDays = 7
	})

	first, err := engine.EnrollContact(ctx, "s1", "c1")
	require.NoError(t, err)
	require.NotNil(t, first.Enrollment)

	// Stop the active enrollment so the uniqueness guard no longer applies;
	// the cap alone must block re-entry.
	_, err = engine.Stop(ctx, first.Enrollment.ID)
	require.NoError(t, err)

	second, err := engine.EnrollContact(ctx, "s1", "c1")
	require.NoError(t, err)
	assert.Equal(t, SkipFrequencyCap, second.Skipped)
}

func TestEnrollContact_FrequencyCapWindowElapsed(t *testing.T) {
	engine, store := testEngine(t)
	ctx := context.Background()

	seedContact(t, store, "c1", "w1", nil)
	seedSequence(t, store, "s1", "w1", func(s *models.Sequence) {
		s.FrequencyCapDays = 7
	})

	first, err := engine.EnrollContact(ctx, "s1", "c1")
	require.NoError(t, err)
	_, err = engine.Stop(ctx, first.Enrollment.ID)
	require.NoError(t, err)

	// Move the engine clock past the cap window.
	engine.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }

	second, err := engine.EnrollContact(ctx, "s1", "c1")
	require.NoError(t, err)
	assert.NotNil(t, second.Enrollment)
}

func TestEnrollContact_MissingRecordsAreErrors(t *testing.T) {
	engine, store := testEngine(t)
	ctx := context.Background()

	seedSequence(t, store, "s1", "w1", nil)

	_, err := engine.EnrollContact(ctx, "s1", "nope")
	require.Error(t, err)

	_, err = engine.EnrollContact(ctx, "nope", "c1")
	require.Error(t, err)
}

func TestEnrollAudience_MixedOutcomes(t *testing.T) {
	engine, store := testEngine(t)
	ctx := context.Background()

	seedSequence(t, store, "s1", "w1", func(s *models.Sequence) {
		s.FrequencyCapDays = 7
	})

	seedContact(t, store, "a", "w1", nil)
	seedContact(t, store, "b", "w1", func(c *models.Contact) {
		c.OptedOut = true
	})
	seedContact(t, store, "c", "w1", nil)

	// Contact c was recently messaged by a campaign; the bulk run excludes
	// them even though their enrollment history is clean.
	require.NoError(t, store.RecordSmsMessage(ctx, &models.SmsMessage{
		WorkspaceID: "w1",
		ContactID:   "c",
		SequenceID:  "other-seq",
		Body:        "earlier campaign",
		SentAt:      time.Now().Add(-24 * time.Hour),
	}))

	result, err := engine.EnrollAudience(ctx, "s1")

	require.NoError(t, err)
	assert.Equal(t, 1, result.Enrolled)
	assert.Equal(t, 1, result.Skipped[SkipOptedOut])
	assert.Equal(t, 1, result.Skipped[SkipFrequencyCap])
	assert.Equal(t, 0, result.Failed)
}

func TestEnrollAudience_NonCampaignMessagesDoNotCap(t *testing.T) {
	engine, store := testEngine(t)
	ctx := context.Background()

	seedSequence(t, store, "s1", "w1", func(s *models.Sequence) {
		s.FrequencyCapDays = 7
	})
	seedContact(t, store, "a", "w1", nil)

	// Ad hoc sends carry no sequence attribution and are exempt from the cap.
	require.NoError(t, store.RecordSmsMessage(ctx, &models.SmsMessage{
		WorkspaceID: "w1",
		ContactID:   "a",
		Body:        "one-off reply",
		SentAt:      time.Now().Add(-time.Hour),
	}))

	result, err := engine.EnrollAudience(ctx, "s1")

	require.NoError(t, err)
	assert.Equal(t, 1, result.Enrolled)
}

func TestHandleTrigger_MatchesTriggerValue(t *testing.T) {
	engine, store := testEngine(t)
	ctx := context.Background()

	seedContact(t, store, "c1", "w1", nil)
	seedSequence(t, store, "s-any", "w1", func(s *models.Sequence) {
		s.TriggerType = models.TriggerKeywordMatched
	})
	seedSequence(t, store, "s-refund", "w1", func(s *models.Sequence) {
		s.TriggerType = models.TriggerKeywordMatched
		s.TriggerValue = "refund"
	})
	seedSequence(t, store, "s-pricing", "w1", func(s *models.Sequence) {
		s.TriggerType = models.TriggerKeywordMatched
		s.TriggerValue = "pricing"
	})

	result, err := engine.HandleTrigger(ctx, "w1", models.TriggerKeywordMatched, "refund", "c1")

	require.NoError(t, err)
	// The unvalued sequence matches any keyword; s-pricing does not match.
	assert.Equal(t, 2, result.Enrolled)
}

func TestHandleTrigger_IgnoresInactiveSequences(t *testing.T) {
	engine, store := testEngine(t)
	ctx := context.Background()

	seedContact(t, store, "c1", "w1", nil)
	seedSequence(t, store, "s1", "w1", func(s *models.Sequence) {
		s.TriggerType = models.TriggerContactCreated
		s.Status = models.SequenceStatusDraft
	})

	result, err := engine.HandleTrigger(ctx, "w1", models.TriggerContactCreated, "", "c1")

	require.NoError(t, err)
	assert.Equal(t, 0, result.Enrolled)
}

func TestStop_ActiveEnrollment(t *testing.T) {
	engine, store := testEngine(t)
	ctx := context.Background()

	seedContact(t, store, "c1", "w1", nil)
	seedSequence(t, store, "s1", "w1", nil)

	result, err := engine.EnrollContact(ctx, "s1", "c1")
	require.NoError(t, err)

	stopped, err := engine.Stop(ctx, result.Enrollment.ID)

	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStopped, stopped.Status)
	assert.Nil(t, stopped.NextStepAt)
}

func TestStop_TerminalEnrollmentIsRejected(t *testing.T) {
	engine, store := testEngine(t)
	ctx := context.Background()

	seedContact(t, store, "c1", "w1", nil)
	seedSequence(t, store, "s1", "w1", nil)

	result, err := engine.EnrollContact(ctx, "s1", "c1")
	require.NoError(t, err)

	_, err = engine.Stop(ctx, result.Enrollment.ID)
	require.NoError(t, err)

	_, err = engine.Stop(ctx, result.Enrollment.ID)
	require.ErrorIs(t, err, ErrNotActive)
}

func TestStop_AllowsReEnrollment(t *testing.T) {
	engine, store := testEngine(t)
	ctx := context.Background()

	seedContact(t, store, "c1", "w1", nil)
	seedSequence(t, store, "s1", "w1", nil)

	first, err := engine.EnrollContact(ctx, "s1", "c1")
	require.NoError(t, err)

	_, err = engine.Stop(ctx, first.Enrollment.ID)
	require.NoError(t, err)

	second, err := engine.EnrollContact(ctx, "s1", "c1")
	require.NoError(t, err)
	require.NotNil(t, second.Enrollment)
	assert.NotEqual(t, first.Enrollment.ID, second.Enrollment.ID)
}
