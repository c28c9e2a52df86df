// Package connectors dispatches chain components to their connector
// implementations and validates component configuration against the
// connector schemas.
package connectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/chainrun/chainrun/pkg/connectors/api"
	"github.com/chainrun/chainrun/pkg/connectors/database"
	"github.com/chainrun/chainrun/pkg/connectors/messagequeue"
	"github.com/chainrun/chainrun/pkg/connectors/service"
	"github.com/chainrun/chainrun/pkg/connectors/streamtopic"
	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/protocol"
)

// FactoryFor resolves the factory serving a component type. Dispatch is a
// switch over the typed enum so an unhandled type fails here, not at some
// later lookup.
func FactoryFor(componentType models.ComponentType) (protocol.ConnectorFactory, error) {
	switch componentType {
	case models.ComponentTypeStreamTopic:
		return streamtopic.NewFactory(), nil
	case models.ComponentTypeMessageQueue:
		return messagequeue.NewFactory(), nil
	case models.ComponentTypeDatabase:
		return database.NewFactory(), nil
	case models.ComponentTypeService:
		return service.NewFactory(), nil
	case models.ComponentTypeAPI:
		return api.NewFactory(), nil
	default:
		return nil, fmt.Errorf("no connector for component type %q", componentType)
	}
}

// ForComponent builds the connector executing the given component.
func ForComponent(ctx context.Context, component *models.Component) (protocol.Connector, error) {
	factory, err := FactoryFor(component.Type)
	if err != nil {
		return nil, err
	}

	connector, err := factory.Create(ctx, component)
	if err != nil {
		return nil, fmt.Errorf("component %q: %w", component.ID, err)
	}

	return connector, nil
}

// ValidateConfig checks the component config against the connector's JSON
// schema before any execution.
func ValidateConfig(component *models.Component) error {
	factory, err := FactoryFor(component.Type)
	if err != nil {
		return err
	}

	config := component.Config
	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(factory.Schema())
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("validate component %q config: %w", component.ID, err)
	}

	if !result.Valid() {
		var errors []string
		for _, resultError := range result.Errors() {
			errors = append(errors, resultError.String())
		}

		return fmt.Errorf("component %q config invalid: %s", component.ID, strings.Join(errors, "; "))
	}

	return nil
}

// CatalogEntry describes one connector type for discovery.
type CatalogEntry struct {
	Type        models.ComponentType `json:"type"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Schema      map[string]any       `json:"schema"`
}

// Catalog lists every available connector type with its configuration
// schema.
func Catalog() []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(models.ComponentTypes()))

	for _, componentType := range models.ComponentTypes() {
		factory, err := FactoryFor(componentType)
		if err != nil {
			continue
		}

		entries = append(entries, CatalogEntry{
			Type:        factory.Type(),
			Name:        factory.Name(),
			Description: factory.Description(),
			Schema:      factory.Schema(),
		})
	}

	return entries
}
