package models

import "time"

type SequenceStatus string

const (
	SequenceStatusDraft    SequenceStatus = "draft"
	SequenceStatusActive   SequenceStatus = "active"
	SequenceStatusPaused   SequenceStatus = "paused"
	SequenceStatusArchived SequenceStatus = "archived"
)

type AudienceType string

const (
	AudienceAll      AudienceType = "all"
	AudienceStage    AudienceType = "stage"
	AudienceCategory AudienceType = "category"
	AudienceInactive AudienceType = "inactive"
)

type TriggerType string

const (
	TriggerContactCreated TriggerType = "contact_created"
	TriggerKeywordMatched TriggerType = "keyword_matched"
	TriggerStageChanged   TriggerType = "stage_changed"
	TriggerManual         TriggerType = "manual"

	// TriggerCategoryAdded chains workflow executions only; sequences cannot
	// be configured with it.
	TriggerCategoryAdded TriggerType = "category_added"
)

type StepChannel string

const (
	ChannelSms   StepChannel = "sms"
	ChannelEmail StepChannel = "email"
)

// Sequence is a multi-step drip campaign definition.
type Sequence struct {
	ID          string         `json:"id"           validate:"required"`
	WorkspaceID string         `json:"workspace_id" validate:"required"`
	Name        string         `json:"name"         validate:"required,min=1"`
	Status      SequenceStatus `json:"status"       validate:"required,oneof=draft active paused archived"`

	// Audience filter: which contacts are eligible to enter.
	AudienceType        AudienceType `json:"audience_type" validate:"required,oneof=all stage category inactive"`
	AudienceFilterValue string       `json:"audience_filter_value"`

	// FrequencyCapDays is the minimum gap before a contact may re-enter.
	// Zero disables the cap.
	FrequencyCapDays int `json:"frequency_cap_days" validate:"gte=0"`

	TriggerType  TriggerType `json:"trigger_type" validate:"required,oneof=contact_created keyword_matched stage_changed manual"`
	TriggerValue string      `json:"trigger_value"`

	Steps []SequenceStep `json:"steps" validate:"dive"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Sequence) IsActive() bool {
	return s.Status == SequenceStatusActive
}

// SequenceStep is one ordered message in a drip campaign.
type SequenceStep struct {
	Order        int         `json:"order"         validate:"gte=0"`
	Channel      StepChannel `json:"channel"       validate:"required,oneof=sms email"`
	DelayMinutes int         `json:"delay_minutes" validate:"gte=0"`
	// Condition is a {{...}} expression evaluated against the contact's
	// execution context before the step is sent; empty means always send.
	Condition string `json:"condition,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body" validate:"required,min=1"`
}
