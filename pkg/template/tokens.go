// Package template provides the two-pass text substitution engine used on
// every configurable text field: single-brace registry tokens first, then
// double-brace expressions against the execution context.
package template

import (
	"strings"

	"github.com/cadenzahq/cadenza/pkg/models"
)

// TokenCategory groups registry tokens for the picker UI.
type TokenCategory string

const (
	CategoryContact  TokenCategory = "contact"
	CategoryLocation TokenCategory = "location"
	CategoryLink     TokenCategory = "link"
	CategoryReview   TokenCategory = "review"
	CategoryAI       TokenCategory = "ai"
)

// Scope is the resolver context tokens are evaluated against. Any field may
// be nil or empty; tokens that cannot resolve return "" and the resolver
// leaves the raw token text in place.
type Scope struct {
	Contact   *models.Contact
	Workspace *models.Workspace
	Workflow  map[string]any
}

// Token is a named, pure text substitution. The registry is closed: ad hoc
// tokens are not supported and unknown names pass through verbatim.
type Token struct {
	Name     string
	Label    string
	Category TokenCategory
	Resolve  func(scope Scope) string
}

var registry = buildRegistry()

func buildRegistry() map[string]Token {
	tokens := []Token{
		{
			Name: "first_name", Label: "First name", Category: CategoryContact,
			Resolve: func(s Scope) string { return contactField(s, func(c *models.Contact) string { return c.FirstName }) },
		},
		{
			Name: "last_name", Label: "Last name", Category: CategoryContact,
			Resolve: func(s Scope) string { return contactField(s, func(c *models.Contact) string { return c.LastName }) },
		},
		{
			Name: "full_name", Label: "Full name", Category: CategoryContact,
			Resolve: func(s Scope) string { return contactField(s, func(c *models.Contact) string { return c.FullName() }) },
		},
		{
			Name: "email", Label: "Email address", Category: CategoryContact,
			Resolve: func(s Scope) string { return contactField(s, func(c *models.Contact) string { return c.Email }) },
		},
		{
			Name: "phone", Label: "Phone number", Category: CategoryContact,
			Resolve: func(s Scope) string { return contactField(s, func(c *models.Contact) string { return c.Phone }) },
		},
		{
			Name: "business_name", Label: "Business name", Category: CategoryLocation,
			Resolve: func(s Scope) string { return workspaceField(s, func(w *models.Workspace) string { return w.Name }) },
		},
		{
			Name: "business_phone", Label: "Business phone", Category: CategoryLocation,
			Resolve: func(s Scope) string {
				return workspaceField(s, func(w *models.Workspace) string { return w.OutboundPhone })
			},
		},
		{
			Name: "booking_link", Label: "Booking link", Category: CategoryLink,
			Resolve: func(s Scope) string {
				return workspaceField(s, func(w *models.Workspace) string { return w.BookingLink })
			},
		},
		{
			Name: "review_link", Label: "Review link", Category: CategoryLink,
			Resolve: func(s Scope) string {
				return workspaceField(s, func(w *models.Workspace) string { return w.ReviewLink })
			},
		},
		{
			Name: "review_text", Label: "Review text", Category: CategoryReview,
			Resolve: func(s Scope) string { return workflowString(s, "reviewText") },
		},
		{
			Name: "reviewer_name", Label: "Reviewer name", Category: CategoryReview,
			Resolve: func(s Scope) string { return workflowString(s, "reviewerName") },
		},
		{
			Name: "ai_output", Label: "AI output", Category: CategoryAI,
			Resolve: func(s Scope) string { return workflowString(s, "aiOutput") },
		},
	}

	byName := make(map[string]Token, len(tokens))
	for _, token := range tokens {
		byName[token.Name] = token
	}

	return byName
}

// LookupToken returns the registry token for name.
func LookupToken(name string) (Token, bool) {
	token, ok := registry[name]

	return token, ok
}

// Tokens returns the full registry, for the picker UI.
func Tokens() []Token {
	result := make([]Token, 0, len(registry))
	for _, token := range registry {
		result = append(result, token)
	}

	return result
}

func contactField(s Scope, fn func(*models.Contact) string) string {
	if s.Contact == nil {
		return ""
	}

	return strings.TrimSpace(fn(s.Contact))
}

func workspaceField(s Scope, fn func(*models.Workspace) string) string {
	if s.Workspace == nil {
		return ""
	}

	return strings.TrimSpace(fn(s.Workspace))
}

func workflowString(s Scope, key string) string {
	if s.Workflow == nil {
		return ""
	}

	if v, ok := s.Workflow[key].(string); ok {
		return v
	}

	return ""
}
