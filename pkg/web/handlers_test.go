package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadenzahq/cadenza/pkg/enrollment"
	"github.com/cadenzahq/cadenza/pkg/executors/updatecontact"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence/memory"
	"github.com/cadenzahq/cadenza/pkg/protocol"
	"github.com/cadenzahq/cadenza/pkg/registry"
	"github.com/cadenzahq/cadenza/pkg/runner"
	"github.com/cadenzahq/cadenza/pkg/status"
	"github.com/cadenzahq/cadenza/pkg/template"
	"github.com/cadenzahq/cadenza/pkg/web"
)

func setupTestApp(t *testing.T) (*fiber.App, *memory.Store) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	store := memory.NewStore()
	engine := enrollment.NewEngine(store, logger)
	validate := validator.New(validator.WithRequiredStructEnabled())

	reg := registry.NewRegistry(logger)
	reg.Register(updatecontact.NewFactory())

	deps := protocol.Deps{
		Store:    store,
		Runner:   runner.NewMemoRunner(),
		Status:   status.Noop{},
		Resolver: template.NewResolver(),
	}

	handlers := web.NewAPIHandlers(store, engine, reg, deps, validate, logger)

	app := fiber.New()

	s := app.Group("/sequences")
	s.Get("/", handlers.GetSequences)
	s.Post("/:id/enrollments", handlers.EnrollContact)
	s.Post("/:id/enrollments/bulk", handlers.EnrollAudience)

	app.Post("/enrollments/:id/stop", handlers.StopEnrollment)
	app.Get("/nodes", handlers.GetNodeTypes)
	app.Post("/nodes/:type/execute", handlers.ExecuteNode)
	app.Get("/tokens", handlers.GetTokens)
	app.Get("/health", handlers.HealthCheck)

	return app, store
}

func seedContact(t *testing.T, store *memory.Store, optedOut bool) *models.Contact {
	t.Helper()

	contact := &models.Contact{
		WorkspaceID: "ws-1",
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       "ada@example.com",
		Phone:       "+15550001111",
		Stage:       "lead",
		OptedOut:    optedOut,
	}
	require.NoError(t, store.SaveContact(context.Background(), contact))

	return contact
}

func seedSequence(t *testing.T, store *memory.Store) *models.Sequence {
	t.Helper()

	sequence := &models.Sequence{
		ID:           "seq-1",
		WorkspaceID:  "ws-1",
		Name:         "Welcome drip",
		Status:       models.SequenceStatusActive,
		AudienceType: models.AudienceAll,
		TriggerType:  models.TriggerManual,
		Steps: []models.SequenceStep{
			{Order: 0, Channel: models.ChannelSms, DelayMinutes: 0, Body: "Hi {first_name}!"},
		},
	}
	require.NoError(t, store.SaveSequence(context.Background(), sequence))

	return sequence
}

func postJSON(t *testing.T, app *fiber.App, path string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	return decoded
}

func TestEnrollContactCreated(t *testing.T) {
	app, store := setupTestApp(t)
	contact := seedContact(t, store, false)
	seedSequence(t, store)

	resp := postJSON(t, app, "/sequences/seq-1/enrollments", fiber.Map{"contact_id": contact.ID})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["enrolled"])

	enrolled, ok := body["enrollment"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "seq-1", enrolled["sequence_id"])
	assert.Equal(t, contact.ID, enrolled["contact_id"])
	assert.Equal(t, string(models.EnrollmentActive), enrolled["status"])
}

func TestEnrollContactSkippedReportsReason(t *testing.T) {
	app, store := setupTestApp(t)
	contact := seedContact(t, store, true)
	seedSequence(t, store)

	resp := postJSON(t, app, "/sequences/seq-1/enrollments", fiber.Map{"contact_id": contact.ID})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["enrolled"])
	assert.Equal(t, string(enrollment.SkipOptedOut), body["skipped_reason"])
}

func TestEnrollContactValidatesBody(t *testing.T) {
	app, store := setupTestApp(t)
	seedSequence(t, store)

	resp := postJSON(t, app, "/sequences/seq-1/enrollments", fiber.Map{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "validation_error", body["type"])
}

func TestEnrollContactUnknownSequence(t *testing.T) {
	app, store := setupTestApp(t)
	contact := seedContact(t, store, false)

	resp := postJSON(t, app, "/sequences/missing/enrollments", fiber.Map{"contact_id": contact.ID})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "not_found", body["type"])
}

func TestEnrollAudienceAggregates(t *testing.T) {
	app, store := setupTestApp(t)
	seedSequence(t, store)
	seedContact(t, store, false)
	seedContact(t, store, false)
	seedContact(t, store, true)

	resp := postJSON(t, app, "/sequences/seq-1/enrollments/bulk", fiber.Map{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.InDelta(t, 2, body["enrolled"], 0)

	skipped, ok := body["skipped"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 1, skipped[string(enrollment.SkipOptedOut)], 0)
}

func TestStopEnrollment(t *testing.T) {
	app, store := setupTestApp(t)
	contact := seedContact(t, store, false)
	seedSequence(t, store)

	resp := postJSON(t, app, "/sequences/seq-1/enrollments", fiber.Map{"contact_id": contact.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	enrolled := body["enrollment"].(map[string]any)
	enrollmentID := enrolled["id"].(string)

	resp = postJSON(t, app, "/enrollments/"+enrollmentID+"/stop", fiber.Map{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stopped := decodeBody(t, resp)
	assert.Equal(t, string(models.EnrollmentStopped), stopped["status"])

	// A second stop hits a terminal enrollment.
	resp = postJSON(t, app, "/enrollments/"+enrollmentID+"/stop", fiber.Map{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	conflict := decodeBody(t, resp)
	assert.Equal(t, "enrollment_not_active", conflict["type"])
}

func TestStopEnrollmentNotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/enrollments/missing/stop", fiber.Map{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetSequencesRequiresWorkspace(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/sequences/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetSequences(t *testing.T) {
	app, store := setupTestApp(t)
	seedSequence(t, store)

	req := httptest.NewRequest(http.MethodGet, "/sequences/?workspace_id=ws-1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.InDelta(t, 1, body["total_count"], 0)
}

func TestExecuteNodeRunsAdHoc(t *testing.T) {
	app, store := setupTestApp(t)
	contact := seedContact(t, store, false)

	resp := postJSON(t, app, "/nodes/updateContact/execute", fiber.Map{
		"node_id":      "adhoc-1",
		"workspace_id": "ws-1",
		"config": fiber.Map{
			"action": "log_note",
			"note":   "Call {first_name} back",
		},
		"values": fiber.Map{"contactId": contact.ID},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "adhoc-1", body["node_id"])

	activities := store.Activities(contact.ID)
	require.Len(t, activities, 1)
	assert.Equal(t, "Call Ada back", activities[0].Body)
}

func TestExecuteNodeRejectsUnknownType(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/nodes/doesNotExist/execute", fiber.Map{
		"node_id":      "adhoc-1",
		"workspace_id": "ws-1",
		"config":       fiber.Map{},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExecuteNodeRejectsInvalidConfig(t *testing.T) {
	app, _ := setupTestApp(t)

	// updateContact requires an action.
	resp := postJSON(t, app, "/nodes/updateContact/execute", fiber.Map{
		"node_id":      "adhoc-1",
		"workspace_id": "ws-1",
		"config":       fiber.Map{},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetTokens(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/tokens", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)

	tokens, ok := body["tokens"].([]any)
	require.True(t, ok)
	assert.Len(t, tokens, len(template.Tokens()))
}

func TestGetNodeTypes(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/nodes", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)

	nodeTypes, ok := body["node_types"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, nodeTypes, models.NodeTypeUpdateContact)

	entry := nodeTypes[models.NodeTypeUpdateContact].(map[string]any)
	assert.NotEmpty(t, entry["name"])
	assert.NotEmpty(t, entry["schema"])
}

func TestHealthCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["healthy"])
}

func TestHealthCheckUnhealthyWithoutExecutors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	store := memory.NewStore()
	engine := enrollment.NewEngine(store, logger)
	validate := validator.New(validator.WithRequiredStructEnabled())
	reg := registry.NewRegistry(logger)

	handlers := web.NewAPIHandlers(store, engine, reg, protocol.Deps{Store: store}, validate, logger)

	app := fiber.New()
	app.Get("/health", handlers.HealthCheck)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["healthy"])
}
