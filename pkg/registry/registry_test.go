package registry_test

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadenzahq/cadenza/pkg/executors/sendsms"
	"github.com/cadenzahq/cadenza/pkg/executors/updatecontact"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/registry"
)

func newTestRegistry() *registry.Registry {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	reg := registry.NewRegistry(logger)
	reg.Register(sendsms.NewFactory())
	reg.Register(updatecontact.NewFactory())

	return reg
}

func TestCreateExecutor(t *testing.T) {
	reg := newTestRegistry()

	executor, err := reg.CreateExecutor(models.NodeTypeSendSms, map[string]any{
		"body": "Hi {first_name}!",
	})
	require.NoError(t, err)
	assert.NotNil(t, executor)
}

func TestCreateExecutorUnknownType(t *testing.T) {
	reg := newTestRegistry()

	_, err := reg.CreateExecutor("doesNotExist", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doesNotExist")
}

func TestCreateExecutorRejectsInvalidConfig(t *testing.T) {
	reg := newTestRegistry()

	// sendSms requires a body.
	_, err := reg.CreateExecutor(models.NodeTypeSendSms, map[string]any{})
	require.Error(t, err)

	// updateContact constrains action to the known set.
	_, err = reg.CreateExecutor(models.NodeTypeUpdateContact, map[string]any{
		"action": "explode",
	})
	require.Error(t, err)
}

func TestAvailableTypes(t *testing.T) {
	reg := newTestRegistry()

	types := reg.AvailableTypes()
	assert.ElementsMatch(t, []string{models.NodeTypeSendSms, models.NodeTypeUpdateContact}, types)
}

func TestFactory(t *testing.T) {
	reg := newTestRegistry()

	factory, ok := reg.Factory(models.NodeTypeSendSms)
	require.True(t, ok)
	assert.Equal(t, models.NodeTypeSendSms, factory.ID())

	_, ok = reg.Factory("doesNotExist")
	assert.False(t, ok)
}

func TestHealthCheck(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	empty := registry.NewRegistry(logger)
	details, healthy := empty.HealthCheck()
	assert.False(t, healthy)
	assert.Equal(t, 0, details["registered_executors"])

	reg := newTestRegistry()
	details, healthy = reg.HealthCheck()
	assert.True(t, healthy)
	assert.Equal(t, 2, details["registered_executors"])
}
