// Package protocol defines the interfaces and contracts for pluggable connectors.
package protocol

import (
	"context"

	"github.com/chainrun/chainrun/pkg/models"
)

// Connector executes one integration step of a workflow chain. Execute
// performs the component's operation once and returns result data for the
// run log. Failures the connector can classify are returned as
// *models.AttemptError; anything else is classified by the caller.
type Connector interface {
	// Execute performs a single attempt of the component's operation
	Execute(ctx context.Context) (map[string]any, error)

	// Type returns the component type this connector serves
	Type() models.ComponentType
}

// ConnectorFactory creates connector instances and provides metadata about
// the connector type.
type ConnectorFactory interface {
	// Create builds a connector for the component, parsing its config.
	// A config the factory cannot parse is a definition error.
	Create(ctx context.Context, component *models.Component) (Connector, error)

	// Type returns the component type this factory serves
	Type() models.ComponentType

	// Name returns the human-readable name for this connector type
	Name() string

	// Description returns a description of what this connector does
	Description() string

	// Schema returns the JSON schema for configuring this connector
	Schema() map[string]any
}
