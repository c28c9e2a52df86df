package models

import "fmt"

// ConnectionType describes the data path between two components.
type ConnectionType string

const (
	ConnectionTopicToTopic ConnectionType = "topic_to_topic"
	ConnectionTopicToQueue ConnectionType = "topic_to_queue"
	ConnectionQueueToQueue ConnectionType = "queue_to_queue"
	ConnectionQueueToTopic ConnectionType = "queue_to_topic"
	ConnectionDBOperation  ConnectionType = "db_operation"
)

// Connection links two components of a workflow. Connections document the
// data flow between chain steps; execution order comes from component order,
// not from connections.
type Connection struct {
	ID       string         `json:"id"`
	Type     ConnectionType `json:"type"      validate:"required"`
	SourceID string         `json:"source_id" validate:"required"`
	TargetID string         `json:"target_id" validate:"required"`
	Config   map[string]any `json:"config,omitempty"`
}

// endpointRule describes which component types a connection type accepts on
// each end. A nil set accepts any type.
type endpointRule struct {
	source map[ComponentType]bool
	target map[ComponentType]bool
}

var connectionRules = map[ConnectionType]endpointRule{
	ConnectionTopicToTopic: {
		source: map[ComponentType]bool{ComponentTypeStreamTopic: true},
		target: map[ComponentType]bool{ComponentTypeStreamTopic: true},
	},
	ConnectionTopicToQueue: {
		source: map[ComponentType]bool{ComponentTypeStreamTopic: true},
		target: map[ComponentType]bool{ComponentTypeMessageQueue: true},
	},
	ConnectionQueueToQueue: {
		source: map[ComponentType]bool{ComponentTypeMessageQueue: true},
		target: map[ComponentType]bool{ComponentTypeMessageQueue: true},
	},
	ConnectionQueueToTopic: {
		source: map[ComponentType]bool{ComponentTypeMessageQueue: true},
		target: map[ComponentType]bool{ComponentTypeStreamTopic: true},
	},
	ConnectionDBOperation: {
		source: map[ComponentType]bool{ComponentTypeDatabase: true},
		target: nil,
	},
}

// Validate checks that both endpoints exist in the workflow and that their
// component types match the connection type. A db_operation connection may
// point at any target but must originate from a database component.
func (c *Connection) Validate(workflow *Workflow) error {
	rule, ok := connectionRules[c.Type]
	if !ok {
		return fmt.Errorf("%w: connection %q has unknown type %q", ErrInvalidWorkflow, c.ID, c.Type)
	}

	source := workflow.ComponentByID(c.SourceID)
	if source == nil {
		return fmt.Errorf("%w: connection %q references missing source %q", ErrInvalidWorkflow, c.ID, c.SourceID)
	}

	target := workflow.ComponentByID(c.TargetID)
	if target == nil {
		return fmt.Errorf("%w: connection %q references missing target %q", ErrInvalidWorkflow, c.ID, c.TargetID)
	}

	if rule.source != nil && !rule.source[source.Type] {
		return fmt.Errorf("%w: connection %q (%s) cannot start from a %s component", ErrInvalidWorkflow, c.ID, c.Type, source.Type)
	}

	if rule.target != nil && !rule.target[target.Type] {
		return fmt.Errorf("%w: connection %q (%s) cannot end at a %s component", ErrInvalidWorkflow, c.ID, c.Type, target.Type)
	}

	return nil
}
