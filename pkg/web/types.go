// Package web provides HTTP request and response types for the workflow API.
package web

import "github.com/chainrun/chainrun/pkg/models"

// CreateWorkflowRequest represents the request body for creating a new workflow.
type CreateWorkflowRequest struct {
	Name           string               `json:"name"            validate:"required,min=3"`
	Description    string               `json:"description"`
	ValidationMode string               `json:"validation_mode" validate:"omitempty,oneof=required optional none"`
	Components     []*models.Component  `json:"components"`
	Connections    []*models.Connection `json:"connections"`
	Owner          string               `json:"owner"`
}

// UpdateWorkflowRequest represents the request body for updating an existing
// workflow. All fields are optional to support partial updates; components
// and connections are replaced wholesale when present.
type UpdateWorkflowRequest struct {
	Name           *string              `json:"name,omitempty"            validate:"omitempty,min=3"`
	Description    *string              `json:"description,omitempty"`
	ValidationMode *string              `json:"validation_mode,omitempty" validate:"omitempty,oneof=required optional none"`
	Active         *bool                `json:"active,omitempty"`
	Components     []*models.Component  `json:"components,omitempty"`
	Connections    []*models.Connection `json:"connections,omitempty"`
}

// StartRunRequest represents the request body for starting a full run.
type StartRunRequest struct {
	ValidationEnabled bool `json:"validation_enabled"`
}

// StartSubRunRequest represents the request body for starting a sub-range
// run. The boundary components must exist when the run executes; include
// flags default to true.
type StartSubRunRequest struct {
	StartComponentID  string `json:"start_component_id" validate:"required"`
	EndComponentID    string `json:"end_component_id"   validate:"required"`
	IncludeStart      *bool  `json:"include_start,omitempty"`
	IncludeEnd        *bool  `json:"include_end,omitempty"`
	ValidationEnabled bool   `json:"validation_enabled"`
}

// CreateScheduleRequest represents the request body for creating a schedule.
type CreateScheduleRequest struct {
	WorkflowID        string `json:"workflow_id"     validate:"required"`
	CronExpression    string `json:"cron_expression" validate:"required"`
	ValidationEnabled bool   `json:"validation_enabled"`
}
