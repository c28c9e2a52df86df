// Package yamlio converts workflow definitions to and from their canonical
// YAML document form, used for export, import, and offline validation.
package yamlio

import (
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/chainrun/chainrun/pkg/models"
)

// Document is the root of a workflow YAML file.
type Document struct {
	Workflow WorkflowDoc `yaml:"workflow"`
}

// WorkflowDoc mirrors models.Workflow in document form. Connections carry
// resolved endpoint names so exported files read without cross-referencing
// component IDs.
type WorkflowDoc struct {
	ID             string          `yaml:"id,omitempty"`
	Name           string          `yaml:"name"`
	Description    string          `yaml:"description,omitempty"`
	ValidationMode string          `yaml:"validation_mode,omitempty"`
	Components     []ComponentDoc  `yaml:"components"`
	Connections    []ConnectionDoc `yaml:"connections,omitempty"`
}

type ComponentDoc struct {
	ID            string                `yaml:"id,omitempty"`
	Name          string                `yaml:"name"`
	Type          string                `yaml:"type"`
	Order         int                   `yaml:"order"`
	Config        map[string]any        `yaml:"config,omitempty"`
	RetryStrategy *models.RetryStrategy `yaml:"retry_strategy,omitempty"`
}

type ConnectionDoc struct {
	ID     string         `yaml:"id,omitempty"`
	Type   string         `yaml:"type"`
	Source EndpointDoc    `yaml:"source"`
	Target EndpointDoc    `yaml:"target"`
	Config map[string]any `yaml:"config,omitempty"`
}

// EndpointDoc names one end of a connection. Only the ID is authoritative;
// Name is informational and recomputed on export.
type EndpointDoc struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name,omitempty"`
}

// Export renders a workflow as its canonical YAML document.
func Export(workflow *models.Workflow) ([]byte, error) {
	doc := Document{
		Workflow: WorkflowDoc{
			ID:             workflow.ID,
			Name:           workflow.Name,
			Description:    workflow.Description,
			ValidationMode: string(workflow.ValidationMode),
			Components:     make([]ComponentDoc, 0, len(workflow.Components)),
			Connections:    make([]ConnectionDoc, 0, len(workflow.Connections)),
		},
	}

	for _, component := range workflow.OrderedComponents() {
		doc.Workflow.Components = append(doc.Workflow.Components, ComponentDoc{
			ID:            component.ID,
			Name:          component.Name,
			Type:          string(component.Type),
			Order:         component.Order,
			Config:        component.Config,
			RetryStrategy: component.Retry,
		})
	}

	for _, connection := range workflow.Connections {
		doc.Workflow.Connections = append(doc.Workflow.Connections, ConnectionDoc{
			ID:     connection.ID,
			Type:   string(connection.Type),
			Source: endpoint(workflow, connection.SourceID),
			Target: endpoint(workflow, connection.TargetID),
			Config: connection.Config,
		})
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workflow document: %w", err)
	}

	return out, nil
}

func endpoint(workflow *models.Workflow, componentID string) EndpointDoc {
	ep := EndpointDoc{ID: componentID}
	if component := workflow.ComponentByID(componentID); component != nil {
		ep.Name = component.Name
	}

	return ep
}

// Import parses a workflow YAML document and validates the resulting
// definition. The returned workflow carries the document's IDs verbatim;
// the caller decides whether to keep or reassign them.
func Import(data []byte) (*models.Workflow, error) {
	var doc Document

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidWorkflow, err)
	}

	if doc.Workflow.Name == "" {
		return nil, fmt.Errorf("%w: document has no workflow name", models.ErrInvalidWorkflow)
	}

	validationMode := models.ValidationMode(doc.Workflow.ValidationMode)
	if validationMode == "" {
		validationMode = models.ValidationModeOptional
	}

	workflow := &models.Workflow{
		ID:             doc.Workflow.ID,
		Name:           doc.Workflow.Name,
		Description:    doc.Workflow.Description,
		ValidationMode: validationMode,
		Components:     make([]*models.Component, 0, len(doc.Workflow.Components)),
		Connections:    make([]*models.Connection, 0, len(doc.Workflow.Connections)),
	}

	for _, component := range doc.Workflow.Components {
		if component.RetryStrategy != nil {
			component.RetryStrategy.ApplyDefaults()
		}

		// Components referenced by connections need their document IDs;
		// unreferenced ones may omit them and get generated IDs here.
		if component.ID == "" {
			component.ID = uuid.New().String()
		}

		workflow.Components = append(workflow.Components, &models.Component{
			ID:     component.ID,
			Name:   component.Name,
			Type:   models.ComponentType(component.Type),
			Order:  component.Order,
			Config: normalizeConfig(component.Config),
			Retry:  component.RetryStrategy,
		})
	}

	for _, connection := range doc.Workflow.Connections {
		workflow.Connections = append(workflow.Connections, &models.Connection{
			ID:       connection.ID,
			Type:     models.ConnectionType(connection.Type),
			SourceID: connection.Source.ID,
			TargetID: connection.Target.ID,
			Config:   normalizeConfig(connection.Config),
		})
	}

	if err := workflow.Validate(); err != nil {
		return nil, err
	}

	return workflow, nil
}

// normalizeConfig rewrites nested map[any]any values produced by the YAML
// decoder into map[string]any so configs round-trip through JSON storage.
func normalizeConfig(config map[string]any) map[string]any {
	if config == nil {
		return nil
	}

	normalized := make(map[string]any, len(config))
	for key, value := range config {
		normalized[key] = normalizeValue(value)
	}

	return normalized
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return normalizeConfig(typed)
	case map[any]any:
		normalized := make(map[string]any, len(typed))
		for key, inner := range typed {
			normalized[fmt.Sprint(key)] = normalizeValue(inner)
		}

		return normalized
	case []any:
		normalized := make([]any, len(typed))
		for i, inner := range typed {
			normalized[i] = normalizeValue(inner)
		}

		return normalized
	default:
		return value
	}
}
