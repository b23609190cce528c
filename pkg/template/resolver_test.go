package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadenzahq/cadenza/pkg/models"
)

func testScope() Scope {
	return Scope{
		Contact: &models.Contact{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
			Phone:     "+15550001111",
		},
		Workspace: &models.Workspace{
			Name:          "Acme Plumbing",
			OutboundPhone: "+15559998888",
			BookingLink:   "https://book.example.com/acme",
			ReviewLink:    "https://g.page/acme/review",
		},
		Workflow: map[string]any{
			"aiOutput":     "generated text",
			"reviewText":   "Great service!",
			"reviewerName": "Bob",
		},
	}
}

func TestResolveTokens_ContactAndWorkspace(t *testing.T) {
	got := ResolveTokens("Hi {first_name}, this is {business_name}. Book: {booking_link}", testScope())

	assert.Equal(t, "Hi Ada, this is Acme Plumbing. Book: https://book.example.com/acme", got)
}

func TestResolveTokens_UnknownTokenPassesThrough(t *testing.T) {
	got := ResolveTokens("Hello {bogus_token}!", testScope())

	assert.Equal(t, "Hello {bogus_token}!", got)
}

func TestResolveTokens_EmptyValueLeavesTokenInPlace(t *testing.T) {
	scope := testScope()
	scope.Contact.FirstName = ""

	got := ResolveTokens("Hi {first_name}", scope)

	assert.Equal(t, "Hi {first_name}", got)
}

func TestResolveTokens_NilScopeFields(t *testing.T) {
	got := ResolveTokens("Hi {first_name} from {business_name}", Scope{})

	assert.Equal(t, "Hi {first_name} from {business_name}", got)
}

func TestResolveTokens_DoesNotConsumeExpressions(t *testing.T) {
	// {{trigger}} contains a valid single-brace shape inside the doubled
	// braces. Pass 1 must leave the expression intact for pass 2.
	got := ResolveTokens("Value: {{first_name}}", testScope())

	assert.Equal(t, "Value: {{first_name}}", got)
}

func TestResolveTokens_WorkflowTokens(t *testing.T) {
	got := ResolveTokens("{reviewer_name} said: {review_text} / {ai_output}", testScope())

	assert.Equal(t, "Bob said: Great service! / generated text", got)
}

func TestResolveExpressions_ContextValues(t *testing.T) {
	r := NewResolver()
	execCtx := models.ExecutionContext{
		Values: map[string]any{"taskNumber": 42, "stage": "proposal"},
	}

	got := r.ResolveExpressions("Task #{{taskNumber}} in {{stage}}", execCtx)

	assert.Equal(t, "Task #42 in proposal", got)
}

func TestResolveExpressions_TriggerDataNested(t *testing.T) {
	r := NewResolver()
	execCtx := models.ExecutionContext{
		TriggerData: map[string]any{"keyword": "refund"},
	}

	got := r.ResolveExpressions("Matched {{trigger.keyword}}", execCtx)

	assert.Equal(t, "Matched refund", got)
}

func TestResolveExpressions_CompileErrorReturnsInputUnchanged(t *testing.T) {
	r := NewResolver()

	input := "Broken {{this is not ((valid}}"
	got := r.ResolveExpressions(input, models.ExecutionContext{})

	assert.Equal(t, input, got)
}

func TestResolveExpressions_NilResultStaysInPlace(t *testing.T) {
	r := NewResolver()

	got := r.ResolveExpressions("Missing {{noSuchKey}}", models.ExecutionContext{})

	assert.Equal(t, "Missing {{noSuchKey}}", got)
}

func TestResolve_TwoPassOrder(t *testing.T) {
	r := NewResolver()
	execCtx := models.ExecutionContext{
		Values: map[string]any{"dueDate": "Friday"},
	}

	got := r.Resolve("Hi {first_name}, your task is due {{dueDate}}", testScope(), execCtx)

	assert.Equal(t, "Hi Ada, your task is due Friday", got)
}

func TestResolve_Deterministic(t *testing.T) {
	r := NewResolver()
	execCtx := models.ExecutionContext{Values: map[string]any{"n": 7}}
	input := "Hi {first_name}, {bogus} and {{n}} and {{missing}}"

	first := r.Resolve(input, testScope(), execCtx)
	second := r.Resolve(first, testScope(), execCtx)

	assert.Equal(t, "Hi Ada, {bogus} and 7 and {{missing}}", first)
	// A resolved string with no live tokens is a fixed point, except values
	// that themselves resolve again; none do here.
	assert.Equal(t, first, second)
}

func TestEvaluateCondition_EmptyIsTrue(t *testing.T) {
	r := NewResolver()

	ok, err := r.EvaluateCondition("", models.ExecutionContext{})

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateCondition_BooleanExpression(t *testing.T) {
	r := NewResolver()
	execCtx := models.ExecutionContext{Values: map[string]any{"stage": "lead"}}

	ok, err := r.EvaluateCondition(`{{stage == "lead"}}`, execCtx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.EvaluateCondition(`{{stage == "customer"}}`, execCtx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateCondition_NilIsFalse(t *testing.T) {
	r := NewResolver()

	ok, err := r.EvaluateCondition("{{noSuchKey}}", models.ExecutionContext{})

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateCondition_StringCoercion(t *testing.T) {
	r := NewResolver()
	execCtx := models.ExecutionContext{Values: map[string]any{"email": "a@b.c", "phone": ""}}

	ok, err := r.EvaluateCondition("{{email}}", execCtx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.EvaluateCondition("{{phone}}", execCtx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateCondition_CompileErrorSurfaces(t *testing.T) {
	r := NewResolver()

	_, err := r.EvaluateCondition("{{a ((( b}}", models.ExecutionContext{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid condition")
}

func TestTokens_RegistryIsClosed(t *testing.T) {
	names := make(map[string]bool)
	for _, token := range Tokens() {
		names[token.Name] = true
		assert.NotEmpty(t, token.Label)
		assert.NotEmpty(t, token.Category)
		assert.NotNil(t, token.Resolve)
	}

	for _, name := range []string{
		"first_name", "last_name", "full_name", "email", "phone",
		"business_name", "business_phone", "booking_link", "review_link",
		"review_text", "reviewer_name", "ai_output",
	} {
		assert.True(t, names[name], "missing token %s", name)
	}

	assert.Len(t, names, 12)
}
