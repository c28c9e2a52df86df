// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/google/uuid"

	"github.com/chainrun/chainrun/pkg/models"
)

// CreateTestComponent creates a test component with default values that can
// be overridden.
func CreateTestComponent(overrides ...func(*models.Component)) *models.Component {
	component := &models.Component{
		ID:    uuid.New().String(),
		Name:  "Test Component",
		Type:  models.ComponentTypeService,
		Order: 1,
		Config: map[string]any{
			"url":    "http://localhost:8080/ping",
			"method": "GET",
		},
	}

	for _, override := range overrides {
		override(component)
	}

	return component
}

// WithID sets the component ID.
func WithID(id string) func(*models.Component) {
	return func(c *models.Component) {
		c.ID = id
	}
}

// WithName sets the component name.
func WithName(name string) func(*models.Component) {
	return func(c *models.Component) {
		c.Name = name
	}
}

// WithType sets the component type with a matching default config.
func WithType(componentType models.ComponentType) func(*models.Component) {
	return func(c *models.Component) {
		c.Type = componentType

		switch componentType {
		case models.ComponentTypeStreamTopic:
			c.Config = map[string]any{"brokers": "localhost:9092", "topic": "test-topic"}
		case models.ComponentTypeMessageQueue:
			c.Config = map[string]any{"addr": "localhost:6379", "queue": "test-queue"}
		case models.ComponentTypeDatabase:
			c.Config = map[string]any{"url": "postgres://localhost/test", "statement": "SELECT 1"}
		case models.ComponentTypeService, models.ComponentTypeAPI:
			c.Config = map[string]any{"url": "http://localhost:8080/ping", "method": "GET"}
		}
	}
}

// WithOrder sets the component's position in the chain.
func WithOrder(order int) func(*models.Component) {
	return func(c *models.Component) {
		c.Order = order
	}
}

// WithConfig sets the component configuration.
func WithConfig(config map[string]any) func(*models.Component) {
	return func(c *models.Component) {
		c.Config = config
	}
}

// WithRetry sets the component's retry strategy.
func WithRetry(retry *models.RetryStrategy) func(*models.Component) {
	return func(c *models.Component) {
		c.Retry = retry
	}
}

// CreateTestWorkflow creates a test workflow with no components.
func CreateTestWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:             uuid.New().String(),
		Name:           "Test Workflow",
		Description:    "A workflow for testing",
		ValidationMode: models.ValidationModeOptional,
		Active:         true,
		CreatedBy:      "test-user",
		Components:     []*models.Component{},
		Connections:    []*models.Connection{},
	}
}

// CreateTestChain creates a test workflow with n service components ordered
// 1..n and ids "c0".."c(n-1)".
func CreateTestChain(n int) *models.Workflow {
	workflow := CreateTestWorkflow()

	for i := range n {
		workflow.Components = append(workflow.Components, CreateTestComponent(
			WithID(componentID(i)),
			WithName("Component "+componentID(i)),
			WithOrder(i+1),
		))
	}

	return workflow
}

func componentID(i int) string {
	return "c" + string(rune('0'+i))
}

// CreateTestConnection creates a topic_to_queue connection between two
// components.
func CreateTestConnection(sourceID, targetID string) *models.Connection {
	return &models.Connection{
		ID:       uuid.New().String(),
		Type:     models.ConnectionTopicToQueue,
		SourceID: sourceID,
		TargetID: targetID,
	}
}
