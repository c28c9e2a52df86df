// Package events defines event types and structures for run lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/chainrun/chainrun/pkg/models"
)

type EventType string

// Kafka topic for run lifecycle events.
const Topic = "chainrun.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Run lifecycle events.
	RunRequestedEvent EventType = "run.requested"
	RunStartedEvent   EventType = "run.started"
	RunFinishedEvent  EventType = "run.finished"

	// Component lifecycle events.
	ComponentStartedEvent  EventType = "component.started"
	ComponentFinishedEvent EventType = "component.finished"
	ComponentRetryingEvent EventType = "component.retrying"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	WorkerID   string         `json:"worker_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// RunRequested asks a runner to pick up a pending run.
type RunRequested struct {
	BaseEvent

	RunID string `json:"run_id"`
}

func (r RunRequested) GetType() EventType {
	return RunRequestedEvent
}

// RunStarted marks the transition of a run into the running state.
type RunStarted struct {
	BaseEvent

	RunID          string         `json:"run_id"`
	Kind           models.RunKind `json:"kind"`
	ComponentCount int            `json:"component_count"`
}

func (r RunStarted) GetType() EventType {
	return RunStartedEvent
}

// RunFinished carries the terminal status of a run.
type RunFinished struct {
	BaseEvent

	RunID              string           `json:"run_id"`
	Status             models.RunStatus `json:"status"`
	DurationMs         int64            `json:"duration_ms"`
	ComponentsExecuted int              `json:"components_executed"`
}

func (r RunFinished) GetType() EventType {
	return RunFinishedEvent
}

// ComponentStarted marks the beginning of a component attempt.
type ComponentStarted struct {
	BaseEvent

	RunID         string `json:"run_id"`
	ComponentID   string `json:"component_id"`
	ComponentName string `json:"component_name"`
	Attempt       int    `json:"attempt"`
}

func (c ComponentStarted) GetType() EventType {
	return ComponentStartedEvent
}

// ComponentFinished carries the terminal state of a component within a run.
type ComponentFinished struct {
	BaseEvent

	RunID       string                `json:"run_id"`
	ComponentID string                `json:"component_id"`
	State       models.ComponentState `json:"state"`
	Error       string                `json:"error,omitempty"`
	DurationMs  int64                 `json:"duration_ms"`
}

func (c ComponentFinished) GetType() EventType {
	return ComponentFinishedEvent
}

// ComponentRetrying announces the wait before the next attempt.
type ComponentRetrying struct {
	BaseEvent

	RunID       string               `json:"run_id"`
	ComponentID string               `json:"component_id"`
	Attempt     int                  `json:"attempt"`
	DelayMs     int64                `json:"delay_ms"`
	Signal      models.FailureSignal `json:"signal"`
}

func (c ComponentRetrying) GetType() EventType {
	return ComponentRetryingEvent
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}
