// Package kafka provides the Kafka-backed channel used in production.
package kafka

import (
	"errors"
	"os"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
)

// Config carries the broker list and the consumer group derived from the
// service name. All cadenza services share the "cadenza." group prefix so a
// worker fleet balances partitions while the scheduler keeps its own offsets.
type Config struct {
	Brokers       []string
	ConsumerGroup string
	ClientID      string
}

// ConfigFromEnv reads KAFKA_BROKERS and derives group and client identifiers
// from the service name.
func ConfigFromEnv(serviceName string) (Config, error) {
	brokers := strings.Split(os.Getenv("KAFKA_BROKERS"), ",")
	if len(brokers) == 0 || brokers[0] == "" {
		return Config{}, errors.New("KAFKA_BROKERS environment variable is not set or empty")
	}

	return Config{
		Brokers:       brokers,
		ConsumerGroup: "cadenza." + serviceName,
		ClientID:      "cadenza-" + serviceName,
	}, nil
}

// CreateChannel builds the publisher and subscriber for a service.
func CreateChannel(logger watermill.LoggerAdapter, serviceName string) (*kafka.Publisher, *kafka.Subscriber, error) {
	cfg, err := ConfigFromEnv(serviceName)
	if err != nil {
		return nil, nil, err
	}

	subscriber, err := newSubscriber(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	return publisher, subscriber, nil
}

func newSubscriber(cfg Config, logger watermill.LoggerAdapter) (*kafka.Subscriber, error) {
	saramaConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaConfig.ClientID = cfg.ClientID
	// A fresh group must replay enrollment and workflow events from the
	// beginning, not just from the moment it joined.
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	return kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               cfg.Brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaConfig,
			ConsumerGroup:         cfg.ConsumerGroup,
			OTELEnabled:           true,
		},
		logger,
	)
}

func newPublisher(cfg Config, logger watermill.LoggerAdapter) (*kafka.Publisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = cfg.ClientID
	saramaConfig.Producer.Return.Successes = true

	return kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               cfg.Brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaConfig,
			OTELEnabled:           true,
		},
		logger,
	)
}
