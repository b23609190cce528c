package sendsms

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadenzahq/cadenza/pkg/executors"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence/memory"
	"github.com/cadenzahq/cadenza/pkg/protocol"
	"github.com/cadenzahq/cadenza/pkg/runner"
	"github.com/cadenzahq/cadenza/pkg/template"
)

type recordingSms struct {
	mu    sync.Mutex
	sends []string
	err   error
}

func (r *recordingSms) SendSms(ctx context.Context, from, to, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}

	r.sends = append(r.sends, body)

	return nil
}

type recordingStatus struct {
	mu       sync.Mutex
	statuses []models.NodeStatus
}

func (r *recordingStatus) Publish(nodeID string, status models.NodeStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.statuses = append(r.statuses, status)
}

func (r *recordingStatus) all() []models.NodeStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]models.NodeStatus(nil), r.statuses...)
}

func testDeps(store *memory.Store, sms *recordingSms, status *recordingStatus) protocol.Deps {
	return protocol.Deps{
		Store:    store,
		Runner:   runner.NewMemoRunner(),
		Status:   status,
		Sms:      sms,
		Resolver: template.NewResolver(),
	}
}

func seedWorkspaceAndContact(t *testing.T, store *memory.Store) {
	t.Helper()

	ctx := context.Background()

	require.NoError(t, store.SaveWorkspace(ctx, &models.Workspace{
		ID:            "w1",
		Name:          "Acme Plumbing",
		OutboundPhone: "+15550001111",
	}))
	require.NoError(t, store.SaveContact(ctx, &models.Contact{
		ID:          "c1",
		WorkspaceID: "w1",
		FirstName:   "Ada",
		Phone:       "+15559998888",
	}))
}

func testRequest() models.NodeRequest {
	return models.NodeRequest{
		NodeID: "node-1",
		Type:   models.NodeTypeSendSms,
		Context: models.ExecutionContext{
			ID:          "exec-1",
			WorkspaceID: "w1",
			Values:      map[string]any{"contactId": "c1"},
		},
	}
}

func TestExecute_SendsAndRecords(t *testing.T) {
	store := memory.NewStore()
	seedWorkspaceAndContact(t, store)

	sms := &recordingSms{}
	status := &recordingStatus{}
	deps := testDeps(store, sms, status)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	executor, err := NewExecutor(map[string]any{"body": "Hi {first_name}!"})
	require.NoError(t, err)

	deltas, err := executor.Execute(context.Background(), deps, testRequest(), logger)

	require.NoError(t, err)
	assert.Equal(t, []string{"Hi Ada!"}, sms.sends)
	assert.NotEmpty(t, deltas["smsMessageId"])
	assert.NotEmpty(t, deltas["smsSentAt"])

	recorded := store.SmsMessages("c1")
	require.Len(t, recorded, 1)
	assert.Equal(t, "Hi Ada!", recorded[0].Body)
	assert.Equal(t, models.SmsOutbound, recorded[0].Direction)

	conversation := store.Conversation("w1", "c1")
	require.NotNil(t, conversation)
	assert.Equal(t, "Hi Ada!", conversation.LastMessage)

	contact, err := store.ContactByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.NotNil(t, contact.LastContactedAt)

	assert.Equal(t, []models.NodeStatus{models.NodeStatusLoading, models.NodeStatusSuccess}, status.all())
}

func TestExecute_SequenceAttribution(t *testing.T) {
	store := memory.NewStore()
	seedWorkspaceAndContact(t, store)

	deps := testDeps(store, &recordingSms{}, &recordingStatus{})
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	executor, err := NewExecutor(map[string]any{"body": "drip step"})
	require.NoError(t, err)

	req := testRequest()
	req.Context.Values["sequenceId"] = "seq-1"

	_, err = executor.Execute(context.Background(), deps, req, logger)

	require.NoError(t, err)
	recorded := store.SmsMessages("c1")
	require.Len(t, recorded, 1)
	assert.Equal(t, "seq-1", recorded[0].SequenceID)
}

func TestExecute_MissingContact(t *testing.T) {
	store := memory.NewStore()
	seedWorkspaceAndContact(t, store)

	status := &recordingStatus{}
	deps := testDeps(store, &recordingSms{}, status)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	executor, err := NewExecutor(map[string]any{"body": "hello"})
	require.NoError(t, err)

	req := testRequest()
	req.Context.Values = nil

	_, err = executor.Execute(context.Background(), deps, req, logger)

	require.ErrorIs(t, err, executors.ErrMissingContact)
	assert.True(t, executors.IsConfigurationError(err))
	assert.Equal(t, []models.NodeStatus{models.NodeStatusLoading, models.NodeStatusError}, status.all())
}

func TestExecute_NoPhoneNumber(t *testing.T) {
	store := memory.NewStore()
	seedWorkspaceAndContact(t, store)
	require.NoError(t, store.SaveContact(context.Background(), &models.Contact{
		ID:          "c2",
		WorkspaceID: "w1",
	}))

	deps := testDeps(store, &recordingSms{}, &recordingStatus{})
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	executor, err := NewExecutor(map[string]any{"body": "hello"})
	require.NoError(t, err)

	req := testRequest()
	req.Context.Values["contactId"] = "c2"

	_, err = executor.Execute(context.Background(), deps, req, logger)

	require.ErrorIs(t, err, executors.ErrNoPhoneNumber)
}

func TestExecute_NoOutboundNumber(t *testing.T) {
	store := memory.NewStore()
	seedWorkspaceAndContact(t, store)
	require.NoError(t, store.SaveWorkspace(context.Background(), &models.Workspace{
		ID:   "w1",
		Name: "Acme Plumbing",
	}))

	deps := testDeps(store, &recordingSms{}, &recordingStatus{})
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	executor, err := NewExecutor(map[string]any{"body": "hello"})
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), deps, testRequest(), logger)

	require.ErrorIs(t, err, executors.ErrNoOutboundNumber)
}

func TestExecute_OptedOut(t *testing.T) {
	store := memory.NewStore()
	seedWorkspaceAndContact(t, store)
	require.NoError(t, store.SaveContact(context.Background(), &models.Contact{
		ID:          "c1",
		WorkspaceID: "w1",
		Phone:       "+15559998888",
		OptedOut:    true,
	}))

	sms := &recordingSms{}
	deps := testDeps(store, sms, &recordingStatus{})
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	executor, err := NewExecutor(map[string]any{"body": "hello"})
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), deps, testRequest(), logger)

	require.ErrorIs(t, err, executors.ErrContactOptedOut)
	assert.False(t, executors.IsConfigurationError(err))
	assert.Empty(t, sms.sends)
	assert.Empty(t, store.SmsMessages("c1"))
}

func TestExecute_EmptyTemplate(t *testing.T) {
	store := memory.NewStore()
	seedWorkspaceAndContact(t, store)

	deps := testDeps(store, &recordingSms{}, &recordingStatus{})
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	executor, err := NewExecutor(map[string]any{"body": ""})
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), deps, testRequest(), logger)

	require.ErrorIs(t, err, executors.ErrEmptyTemplate)
}

func TestExecute_TransportFailureDoesNotRecord(t *testing.T) {
	store := memory.NewStore()
	seedWorkspaceAndContact(t, store)

	sms := &recordingSms{err: errors.New("carrier down")}
	deps := testDeps(store, sms, &recordingStatus{})
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	executor, err := NewExecutor(map[string]any{"body": "hello"})
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), deps, testRequest(), logger)

	require.Error(t, err)
	assert.Empty(t, store.SmsMessages("c1"))
}

func TestExecute_RetryResumesAfterCompletedSend(t *testing.T) {
	store := memory.NewStore()
	seedWorkspaceAndContact(t, store)

	sms := &recordingSms{}
	memo := runner.NewMemoRunner()
	deps := testDeps(store, sms, &recordingStatus{})
	deps.Runner = memo
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	executor, err := NewExecutor(map[string]any{"body": "hello"})
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), deps, testRequest(), logger)
	require.NoError(t, err)

	// A retried execution with the same runner must not send twice.
	_, err = executor.Execute(context.Background(), deps, testRequest(), logger)
	require.NoError(t, err)

	assert.Len(t, sms.sends, 1)
	require.Len(t, store.SmsMessages("c1"), 1)
}
