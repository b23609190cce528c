package ai

import "github.com/cadenzahq/cadenza/pkg/models"

// Built-in prompt presets, grouped by mode. Presets are pure data; the
// orchestrator falls back to them when a request carries no explicit
// prompts.
var presets = map[string]models.PromptPreset{
	"follow_up_sms": {
		ID:     "follow_up_sms",
		Mode:   models.AIModeGenerate,
		System: "You write short, friendly follow-up text messages on behalf of a local business. Keep it under 300 characters, no emojis unless the brand tone asks for them.",
		UserTemplate: "Write a follow-up message for {first_name}. Their current stage is {{stage}}. " +
			"Reference the last conversation if one is included.",
	},
	"follow_up_email": {
		ID:           "follow_up_email",
		Mode:         models.AIModeGenerate,
		System:       "You write concise follow-up emails on behalf of a local business. Two short paragraphs at most, one clear call to action.",
		UserTemplate: "Write a follow-up email for {first_name} ({email}). Their current stage is {{stage}}.",
	},
	"review_reply": {
		ID:           "review_reply",
		Mode:         models.AIModeGenerate,
		System:       "You write public replies to customer reviews. Thank the reviewer, address their points, stay gracious even for negative reviews.",
		UserTemplate: "Write a reply to this review from {reviewer_name}: {review_text}",
	},
	"conversation_summary": {
		ID:           "conversation_summary",
		Mode:         models.AIModeSummarize,
		System:       "You summarize CRM conversation threads into two or three sentences for a busy operator.",
		UserTemplate: "Summarize this conversation: {{conversation}}",
	},
	"lead_intent": {
		ID:           "lead_intent",
		Mode:         models.AIModeAnalyze,
		System:       "You classify lead intent from their messages. Answer with one of: hot, warm, cold, unsubscribe, followed by one sentence of reasoning.",
		UserTemplate: "Classify the intent of this message: {{message}}",
	},
}

// PresetByID looks up a built-in preset.
func PresetByID(id string) (models.PromptPreset, bool) {
	preset, ok := presets[id]

	return preset, ok
}

// PresetsByMode returns the presets for one mode, for the picker UI.
func PresetsByMode(mode models.AIMode) []models.PromptPreset {
	var result []models.PromptPreset

	for _, preset := range presets {
		if preset.Mode == mode {
			result = append(result, preset)
		}
	}

	return result
}
