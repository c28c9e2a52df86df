// Package streamtopic provides the stream topic connector factory for the catalog.
package streamtopic

import (
	"context"

	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/protocol"
)

// Factory creates stream topic connectors.
type Factory struct{}

// NewFactory creates a new stream topic connector factory.
func NewFactory() protocol.ConnectorFactory {
	return &Factory{}
}

// Create builds a connector for the component.
func (f *Factory) Create(ctx context.Context, component *models.Component) (protocol.Connector, error) {
	return NewConnector(component)
}

// Type returns the component type this factory serves.
func (f *Factory) Type() models.ComponentType {
	return models.ComponentTypeStreamTopic
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Stream Topic"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Publishes a message to a Kafka-style partitioned log topic to verify the integration end to end"
}

// Schema returns the JSON schema for stream topic component configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"brokers": map[string]any{
				"type":        "string",
				"description": "Comma-separated broker addresses",
				"examples": []string{
					"kafka-1:9092",
					"kafka-1:9092,kafka-2:9092,kafka-3:9092",
				},
			},
			"topic": map[string]any{
				"type":        "string",
				"description": "Topic to publish to",
				"examples":    []string{"orders", "payments.events"},
			},
			"key": map[string]any{
				"type":        "string",
				"description": "Optional partition key for the published message",
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Message payload to publish",
				"default":     "chainrun connectivity check",
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Broker operation timeout in seconds",
				"default":     30,
				"minimum":     1,
				"maximum":     300,
			},
		},
		"required": []string{"brokers", "topic"},
		"examples": []map[string]any{
			{"brokers": "kafka-1:9092", "topic": "orders"},
			{"brokers": "kafka-1:9092,kafka-2:9092", "topic": "payments.events", "key": "payment-42"},
		},
	}
}
