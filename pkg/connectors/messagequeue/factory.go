// Package messagequeue provides the message queue connector factory for the catalog.
package messagequeue

import (
	"context"

	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/protocol"
)

// Factory creates message queue connectors.
type Factory struct{}

// NewFactory creates a new message queue connector factory.
func NewFactory() protocol.ConnectorFactory {
	return &Factory{}
}

// Create builds a connector for the component.
func (f *Factory) Create(ctx context.Context, component *models.Component) (protocol.Connector, error) {
	return NewConnector(component)
}

// Type returns the component type this factory serves.
func (f *Factory) Type() models.ComponentType {
	return models.ComponentTypeMessageQueue
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Message Queue"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Pushes a message onto a Redis-backed queue to verify the integration end to end"
}

// Schema returns the JSON schema for message queue component configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"addr": map[string]any{
				"type":        "string",
				"description": "Queue backend address",
				"default":     "localhost:6379",
				"examples":    []string{"redis-1:6379"},
			},
			"queue": map[string]any{
				"type":        "string",
				"description": "Queue name to push to",
				"examples":    []string{"orders.incoming", "notifications"},
			},
			"password": map[string]any{
				"type":        "string",
				"description": "Optional backend password",
			},
			"db": map[string]any{
				"type":        "number",
				"description": "Backend database index",
				"default":     0,
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Message payload to push",
				"default":     "chainrun connectivity check",
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Backend operation timeout in seconds",
				"default":     30,
				"minimum":     1,
				"maximum":     300,
			},
		},
		"required": []string{"queue"},
		"examples": []map[string]any{
			{"addr": "redis-1:6379", "queue": "orders.incoming"},
			{"queue": "notifications", "db": 2, "message": "ping"},
		},
	}
}
