// Package file provides file-based persistence: one JSON document per
// entity under <root>/{workflows,runs,statuses,schedules}/.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/chainrun/chainrun/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local file system.
type Persistence struct {
	root         string
	workflowRepo *WorkflowRepository
	runRepo      *RunRepository
	statusRepo   *ComponentStatusRepository
	scheduleRepo *ScheduleRepository
}

// NewPersistence creates a file persistence layer rooted at the given
// directory. A file:// prefix is stripped.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		workflowRepo: &WorkflowRepository{root: cleanRoot},
		runRepo:      &RunRepository{root: cleanRoot},
		statusRepo:   &ComponentStatusRepository{root: cleanRoot},
		scheduleRepo: &ScheduleRepository{root: cleanRoot},
	}
}

func (fp *Persistence) Workflows() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) Runs() persistence.RunRepository {
	return fp.runRepo
}

func (fp *Persistence) Statuses() persistence.ComponentStatusRepository {
	return fp.statusRepo
}

func (fp *Persistence) Schedules() persistence.ScheduleRepository {
	return fp.scheduleRepo
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file-based persistence there is
// nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// readJSON loads one entity document. Returns (false, nil) when the file
// does not exist.
func readJSON(dir, id string, v any) (bool, error) {
	filePath := filepath.Clean(path.Join(dir, id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("read %s: %w", filePath, err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", filePath, err)
	}

	return true, nil
}

// writeJSON stores one entity document, creating the directory on demand.
func writeJSON(dir, id string, v any) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", id, err)
	}

	return os.WriteFile(path.Join(dir, id+".json"), data, 0600)
}

// removeJSON deletes one entity document. Missing files are not an error.
func removeJSON(dir, id string) error {
	err := os.Remove(path.Join(dir, id+".json"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", id, err)
	}

	return nil
}
