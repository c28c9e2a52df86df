package streamtopic

import (
	"errors"
	"testing"

	"github.com/IBM/sarama"

	"github.com/chainrun/chainrun/pkg/models"
)

func TestNewConnector_ParsesConfig(t *testing.T) {
	component := &models.Component{
		ID:   "comp-1",
		Name: "orders topic",
		Type: models.ComponentTypeStreamTopic,
		Config: map[string]any{
			"brokers": "kafka-1:9092, kafka-2:9092",
			"topic":   "orders",
			"key":     "order-42",
			"message": "hello",
			"timeout": float64(10),
		},
	}

	connector, err := NewConnector(component)
	if err != nil {
		t.Fatalf("Failed to create connector: %v", err)
	}

	if len(connector.config.Brokers) != 2 {
		t.Fatalf("Expected 2 brokers, got: %d", len(connector.config.Brokers))
	}

	if connector.config.Brokers[1] != "kafka-2:9092" {
		t.Errorf("Expected trimmed broker address, got: %q", connector.config.Brokers[1])
	}

	if connector.config.Topic != "orders" {
		t.Errorf("Expected topic 'orders', got: %q", connector.config.Topic)
	}

	if connector.config.Timeout != 10 {
		t.Errorf("Expected timeout 10, got: %d", connector.config.Timeout)
	}

	if connector.Type() != models.ComponentTypeStreamTopic {
		t.Errorf("Unexpected connector type: %s", connector.Type())
	}
}

func TestNewConnector_Defaults(t *testing.T) {
	component := &models.Component{
		ID:   "comp-1",
		Name: "orders topic",
		Type: models.ComponentTypeStreamTopic,
		Config: map[string]any{
			"brokers": "kafka-1:9092",
			"topic":   "orders",
		},
	}

	connector, err := NewConnector(component)
	if err != nil {
		t.Fatalf("Failed to create connector: %v", err)
	}

	if connector.config.Message == "" {
		t.Error("Expected default message")
	}

	if connector.config.Timeout != 30 {
		t.Errorf("Expected default timeout 30, got: %d", connector.config.Timeout)
	}
}

func TestNewConnector_MissingRequiredFields(t *testing.T) {
	testCases := []struct {
		name   string
		config map[string]any
	}{
		{name: "missing brokers", config: map[string]any{"topic": "orders"}},
		{name: "missing topic", config: map[string]any{"brokers": "kafka-1:9092"}},
		{name: "empty brokers", config: map[string]any{"brokers": " , ", "topic": "orders"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			component := &models.Component{
				ID:     "comp-1",
				Name:   "orders topic",
				Type:   models.ComponentTypeStreamTopic,
				Config: tc.config,
			}

			if _, err := NewConnector(component); err == nil {
				t.Error("Expected config error")
			}
		})
	}
}

func TestClassifyProduceError(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		signal models.FailureSignal
	}{
		{name: "unknown topic", err: sarama.ErrUnknownTopicOrPartition, signal: models.SignalPermanentConfig},
		{name: "topic authorization", err: sarama.ErrTopicAuthorizationFailed, signal: models.SignalPermanentConfig},
		{name: "message too large", err: sarama.ErrMessageSizeTooLarge, signal: models.SignalPermanentData},
		{name: "broker unreachable", err: errors.New("dial tcp: connection refused"), signal: models.SignalTransientConnectivity},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			classified := classifyProduceError(tc.err)

			var attemptErr *models.AttemptError
			if !errors.As(classified, &attemptErr) {
				t.Fatalf("Expected AttemptError, got: %T", classified)
			}

			if attemptErr.Signal != tc.signal {
				t.Errorf("Expected signal %s, got: %s", tc.signal, attemptErr.Signal)
			}
		})
	}
}
