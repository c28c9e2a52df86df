// Package database provides the relational database connector for chain execution.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/chainrun/chainrun/pkg/models"
)

// Connector runs a configured statement against a relational database to
// exercise the integration end to end.
type Connector struct {
	config Config
}

// Config defines the connection settings for a database component.
type Config struct {
	URL       string
	Statement string
	Timeout   int
}

// NewConnector parses the component config and builds a database connector.
func NewConnector(component *models.Component) (*Connector, error) {
	config := Config{
		Statement: "SELECT 1",
		Timeout:   30,
	}

	if url, ok := component.Config["url"].(string); ok && url != "" {
		config.URL = url
	} else {
		return nil, errors.New("missing required field 'url'")
	}

	if statement, ok := component.Config["statement"].(string); ok && statement != "" {
		config.Statement = statement
	}

	if timeout, ok := component.Config["timeout"].(float64); ok {
		config.Timeout = int(timeout)
	}

	return &Connector{config: config}, nil
}

// Type returns the component type this connector serves.
func (c *Connector) Type() models.ComponentType {
	return models.ComponentTypeDatabase
}

// Execute connects to the database and runs the configured statement once.
func (c *Connector) Execute(ctx context.Context) (map[string]any, error) {
	db, err := sql.Open("postgres", c.config.URL)
	if err != nil {
		return nil, models.NewAttemptError(models.SignalPermanentConfig,
			fmt.Errorf("open database: %w", err))
	}

	defer func() {
		_ = db.Close()
	}()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.config.Timeout)*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, classifyDatabaseError(fmt.Errorf("connect to database: %w", err))
	}

	result, err := db.ExecContext(ctx, c.config.Statement)
	if err != nil {
		return nil, classifyDatabaseError(fmt.Errorf("execute statement: %w", err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		rowsAffected = 0
	}

	return map[string]any{
		"rows_affected": rowsAffected,
	}, nil
}

// classifyDatabaseError maps SQLSTATE classes onto failure signals. Bad
// credentials and broken statements will not fix themselves on retry;
// connection exceptions will once the database is reachable again.
func classifyDatabaseError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return models.NewAttemptError(models.SignalTransientConnectivity, err)
	}

	switch pqErr.Code.Class() {
	case "28", "3D", "42": // invalid authorization, unknown database, broken statement
		return models.NewAttemptError(models.SignalPermanentConfig, err)
	case "22", "23": // data exception, constraint violation
		return models.NewAttemptError(models.SignalPermanentData, err)
	case "08": // connection exception
		return models.NewAttemptError(models.SignalTransientConnectivity, err)
	default:
		return models.NewAttemptError(models.SignalTransientRemoteError, err)
	}
}
