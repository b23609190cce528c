package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := ConfigFromEnv("worker")

	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers)
	assert.Equal(t, "cadenza.worker", cfg.ConsumerGroup)
	assert.Equal(t, "cadenza-worker", cfg.ClientID)
}

func TestConfigFromEnv_MissingBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")

	_, err := ConfigFromEnv("worker")

	require.Error(t, err)
}
