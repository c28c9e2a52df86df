package models

import "fmt"

// ComponentType identifies which kind of integration a component talks to.
type ComponentType string

const (
	ComponentTypeStreamTopic  ComponentType = "stream-topic"  // Kafka-style partitioned log topic
	ComponentTypeMessageQueue ComponentType = "message-queue" // Point-to-point queue
	ComponentTypeDatabase     ComponentType = "database"      // Relational database operation
	ComponentTypeService      ComponentType = "service"       // Internal service endpoint
	ComponentTypeAPI          ComponentType = "api"           // External HTTP API
)

// ComponentTypes lists every supported component type.
func ComponentTypes() []ComponentType {
	return []ComponentType{
		ComponentTypeStreamTopic,
		ComponentTypeMessageQueue,
		ComponentTypeDatabase,
		ComponentTypeService,
		ComponentTypeAPI,
	}
}

// Component is a single step in a workflow chain. Config carries the
// type-specific connection settings and is interpreted only by the matching
// connector. Retry is optional; a component without a strategy is never
// retried automatically.
type Component struct {
	ID     string         `json:"id"     validate:"required"`
	Name   string         `json:"name"   validate:"required,min=1"`
	Type   ComponentType  `json:"type"   validate:"required"`
	Order  int            `json:"order"`
	Config map[string]any `json:"config"`
	Retry  *RetryStrategy `json:"retry,omitempty"`
}

// Validate checks the component type, order, and retry strategy.
func (c *Component) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: component without id", ErrInvalidWorkflow)
	}

	if c.Name == "" {
		return fmt.Errorf("%w: component %q without name", ErrInvalidWorkflow, c.ID)
	}

	switch c.Type {
	case ComponentTypeStreamTopic, ComponentTypeMessageQueue, ComponentTypeDatabase, ComponentTypeService, ComponentTypeAPI:
	default:
		return fmt.Errorf("%w: component %q has unknown type %q", ErrInvalidWorkflow, c.ID, c.Type)
	}

	if c.Order < 0 {
		return fmt.Errorf("%w: component %q has negative order %d", ErrInvalidWorkflow, c.ID, c.Order)
	}

	if c.Retry != nil {
		if err := c.Retry.Validate(); err != nil {
			return fmt.Errorf("component %q: %w", c.ID, err)
		}
	}

	return nil
}

// MaxAttempts returns how many executions the component may receive in one
// run: the initial attempt plus any retries granted by its strategy.
func (c *Component) MaxAttempts() int {
	if c.Retry == nil {
		return 1
	}

	return c.Retry.MaxRetries + 1
}
