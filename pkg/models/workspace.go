package models

// Workspace is the tenant record. The brand-profile fields feed AI prompt
// personalization; the transport fields are required by the send executors.
type Workspace struct {
	ID            string `json:"id"   validate:"required"`
	Name          string `json:"name" validate:"required,min=1"`
	SenderEmail   string `json:"sender_email" validate:"omitempty,email"`
	OutboundPhone string `json:"outbound_phone"`
	BookingLink   string `json:"booking_link"  validate:"omitempty,url"`
	ReviewLink    string `json:"review_link"   validate:"omitempty,url"`

	// Brand profile, read-only for personalization.
	BrandTone           string   `json:"brand_tone"`
	Industry            string   `json:"industry"`
	Services            []string `json:"services"`
	UniqueSellingPoints []string `json:"unique_selling_points"`
	SpecialInstructions string   `json:"special_instructions"`

	// AIMonthlyTokenLimit caps combined input+output tokens per calendar
	// month. Zero means unlimited.
	AIMonthlyTokenLimit int64 `json:"ai_monthly_token_limit"`
}

// BrandProfile is the subset of workspace data injected into AI prompts.
type BrandProfile struct {
	Name                string   `json:"name"`
	Tone                string   `json:"tone"`
	Industry            string   `json:"industry"`
	Services            []string `json:"services"`
	UniqueSellingPoints []string `json:"unique_selling_points"`
	SpecialInstructions string   `json:"special_instructions"`
}

func (w *Workspace) BrandProfile() BrandProfile {
	return BrandProfile{
		Name:                w.Name,
		Tone:                w.BrandTone,
		Industry:            w.Industry,
		Services:            w.Services,
		UniqueSellingPoints: w.UniqueSellingPoints,
		SpecialInstructions: w.SpecialInstructions,
	}
}
