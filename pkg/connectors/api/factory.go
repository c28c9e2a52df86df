// Package api provides the external API connector factory for the catalog.
package api

import (
	"context"

	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/protocol"
)

// Factory creates external API connectors.
type Factory struct{}

// NewFactory creates a new external API connector factory.
func NewFactory() protocol.ConnectorFactory {
	return &Factory{}
}

// Create builds a connector for the component.
func (f *Factory) Create(ctx context.Context, component *models.Component) (protocol.Connector, error) {
	return NewConnector(component)
}

// Type returns the component type this factory serves.
func (f *Factory) Type() models.ComponentType {
	return models.ComponentTypeAPI
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "External API"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Calls an external HTTP API with credentials to verify the integration end to end"
}

// Schema returns the JSON schema for api component configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "API endpoint URL",
				"examples":    []string{"https://api.example.com/v1/status"},
			},
			"method": map[string]any{
				"type":        "string",
				"description": "HTTP method",
				"default":     "GET",
				"enum":        []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD"},
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "HTTP headers sent with the request",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Raw request body",
			},
			"auth_token": map[string]any{
				"type":        "string",
				"description": "Bearer token sent in the Authorization header",
			},
			"api_key": map[string]any{
				"type":        "string",
				"description": "API key sent in the configured header",
			},
			"api_key_header": map[string]any{
				"type":        "string",
				"description": "Header name carrying the API key",
				"default":     "X-API-Key",
			},
			"expected_status": map[string]any{
				"type":        "number",
				"description": "Exact status code expected; any 2xx passes when unset",
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Request timeout in seconds",
				"default":     30,
				"minimum":     1,
				"maximum":     300,
			},
		},
		"required": []string{"url"},
		"examples": []map[string]any{
			{"url": "https://api.example.com/v1/status"},
			{"url": "https://api.example.com/v1/orders", "method": "POST", "auth_token": "{{API_TOKEN}}", "expected_status": 201},
		},
	}
}
