// Package service provides the service connector factory for the catalog.
package service

import (
	"context"

	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/protocol"
)

// Factory creates service connectors.
type Factory struct{}

// NewFactory creates a new service connector factory.
func NewFactory() protocol.ConnectorFactory {
	return &Factory{}
}

// Create builds a connector for the component.
func (f *Factory) Create(ctx context.Context, component *models.Component) (protocol.Connector, error) {
	return NewConnector(component)
}

// Type returns the component type this factory serves.
func (f *Factory) Type() models.ComponentType {
	return models.ComponentTypeService
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Service"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Calls an internal service endpoint to verify the integration end to end"
}

// Schema returns the JSON schema for service component configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Service endpoint URL",
				"examples":    []string{"http://orders-svc:8080/internal/ingest"},
			},
			"method": map[string]any{
				"type":        "string",
				"description": "HTTP method",
				"default":     "POST",
				"enum":        []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD"},
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "HTTP headers sent with the request",
			},
			"payload": map[string]any{
				"type":        "object",
				"description": "JSON payload sent as the request body",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Raw request body, takes precedence over payload",
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
			{"url": "http://orders-svc:8080/internal/ingest", "payload": map[string]any{"source": "chainrun"}},
			{"url": "http://billing-svc:8080/health", "method": "GET", "expected_status": 200},
		},
	}
}
