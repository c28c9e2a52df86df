// Package cmd wires shared infrastructure (persistence, event bus) for the
// binaries from their flag values.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chainrun/chainrun/pkg/persistence"
	"github.com/chainrun/chainrun/pkg/persistence/file"
	"github.com/chainrun/chainrun/pkg/persistence/postgresql"
)

// NewPersistence selects a persistence provider by the URL scheme:
// postgres:// and postgresql:// open a PostgreSQL store, anything else is
// treated as a file store root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgresql persistence: %w", err)
		}

		return store, nil
	default:
		return file.NewPersistence(databaseURL), nil
	}
}
