// Package streamtopic provides the stream topic connector for chain execution.
package streamtopic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/chainrun/chainrun/pkg/models"
)

// Connector publishes a configured message to a partitioned log topic to
// exercise the integration end to end.
type Connector struct {
	config Config
}

// Config defines the connection settings for a stream topic component.
type Config struct {
	Brokers []string
	Topic   string
	Key     string
	Message string
	Timeout int
}

// NewConnector parses the component config and builds a stream topic
// connector.
func NewConnector(component *models.Component) (*Connector, error) {
	config := Config{
		Message: "chainrun connectivity check",
		Timeout: 30,
	}

	if brokers, ok := component.Config["brokers"].(string); ok {
		for _, broker := range strings.Split(brokers, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				config.Brokers = append(config.Brokers, broker)
			}
		}
	}

	if len(config.Brokers) == 0 {
		return nil, errors.New("missing required field 'brokers'")
	}

	if topic, ok := component.Config["topic"].(string); ok && topic != "" {
		config.Topic = topic
	} else {
		return nil, errors.New("missing required field 'topic'")
	}

	if key, ok := component.Config["key"].(string); ok {
		config.Key = key
	}

	if message, ok := component.Config["message"].(string); ok && message != "" {
		config.Message = message
	}

	if timeout, ok := component.Config["timeout"].(float64); ok {
		config.Timeout = int(timeout)
	}

	return &Connector{config: config}, nil
}

// Type returns the component type this connector serves.
func (c *Connector) Type() models.ComponentType {
	return models.ComponentTypeStreamTopic
}

// Execute publishes one message to the configured topic.
func (c *Connector) Execute(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	producer, err := sarama.NewSyncProducer(c.config.Brokers, c.saramaConfig())
	if err != nil {
		return nil, models.NewAttemptError(models.SignalTransientConnectivity,
			fmt.Errorf("connect to brokers: %w", err))
	}

	defer func() {
		_ = producer.Close()
	}()

	message := &sarama.ProducerMessage{
		Topic: c.config.Topic,
		Value: sarama.StringEncoder(c.config.Message),
	}
	if c.config.Key != "" {
		message.Key = sarama.StringEncoder(c.config.Key)
	}

	partition, offset, err := producer.SendMessage(message)
	if err != nil {
		return nil, classifyProduceError(err)
	}

	return map[string]any{
		"topic":     c.config.Topic,
		"partition": partition,
		"offset":    offset,
	}, nil
}

func (c *Connector) saramaConfig() *sarama.Config {
	timeout := time.Duration(c.config.Timeout) * time.Second

	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Timeout = timeout
	saramaConfig.Net.DialTimeout = timeout
	saramaConfig.Net.ReadTimeout = timeout
	saramaConfig.Net.WriteTimeout = timeout

	return saramaConfig
}

// classifyProduceError maps broker responses onto failure signals. Unknown
// topics and authorization failures will not fix themselves on retry.
func classifyProduceError(err error) error {
	switch {
	case errors.Is(err, sarama.ErrUnknownTopicOrPartition),
		errors.Is(err, sarama.ErrTopicAuthorizationFailed),
		errors.Is(err, sarama.ErrClusterAuthorizationFailed):
		return models.NewAttemptError(models.SignalPermanentConfig, fmt.Errorf("publish rejected: %w", err))
	case errors.Is(err, sarama.ErrMessageSizeTooLarge),
		errors.Is(err, sarama.ErrInvalidMessage):
		return models.NewAttemptError(models.SignalPermanentData, fmt.Errorf("publish rejected: %w", err))
	default:
		return models.NewAttemptError(models.SignalTransientConnectivity, fmt.Errorf("publish failed: %w", err))
	}
}
