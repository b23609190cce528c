// Package ai assembles prompts, defends against prompt injection, gates
// spend and dispatches to interchangeable model-provider backends.
package ai

import "errors"

var (
	// ErrBudgetExceeded indicates the pre-flight budget gate refused the
	// call. No provider was invoked and no spend occurred.
	ErrBudgetExceeded = errors.New("ai budget exceeded for workspace")

	// ErrPresetNotFound indicates the request named a preset the catalog
	// does not contain and supplied no explicit prompts.
	ErrPresetNotFound = errors.New("prompt preset not found")

	// ErrNoPrompt indicates neither explicit prompts nor a preset were given.
	ErrNoPrompt = errors.New("no prompt configured")
)

// IsBudgetExceeded checks for the budget gate refusal.
func IsBudgetExceeded(err error) bool {
	return errors.Is(err, ErrBudgetExceeded)
}
