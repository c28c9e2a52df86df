package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/persistence"
)

// ScheduleRepository stores one JSON document per schedule under
// <root>/schedules/.
type ScheduleRepository struct {
	root string
}

func (sr *ScheduleRepository) dir() string {
	return path.Join(sr.root, "schedules")
}

// List returns every schedule, oldest first.
func (sr *ScheduleRepository) List(ctx context.Context) ([]*models.Schedule, error) {
	entries, err := fs.Glob(os.DirFS(sr.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("list schedule files: %w", err)
	}

	schedules := make([]*models.Schedule, 0, len(entries))

	for _, entry := range entries {
		schedule, err := sr.GetByID(ctx, strings.TrimSuffix(entry, ".json"))
		if err != nil {
			return nil, err
		}

		if schedule != nil {
			schedules = append(schedules, schedule)
		}
	}

	sort.Slice(schedules, func(i, j int) bool {
		return schedules[i].CreatedAt.Before(schedules[j].CreatedAt)
	})

	return schedules, nil
}

// ListDue returns active schedules whose next execution time has passed.
func (sr *ScheduleRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	all, err := sr.List(ctx)
	if err != nil {
		return nil, err
	}

	due := make([]*models.Schedule, 0)

	for _, schedule := range all {
		if schedule.IsDue(now) {
			due = append(due, schedule)
		}
	}

	return due, nil
}

// GetByID retrieves a schedule by its ID. Returns (nil, nil) when absent.
func (sr *ScheduleRepository) GetByID(_ context.Context, id string) (*models.Schedule, error) {
	var schedule models.Schedule

	found, err := readJSON(sr.dir(), id, &schedule)
	if err != nil {
		return nil, persistence.NewStoreError("GetByID", "schedule", id, err)
	}

	if !found {
		return nil, nil
	}

	return &schedule, nil
}

// Save writes a schedule document.
func (sr *ScheduleRepository) Save(_ context.Context, schedule *models.Schedule) error {
	if err := writeJSON(sr.dir(), schedule.ID, schedule); err != nil {
		return persistence.NewStoreError("Save", "schedule", schedule.ID, err)
	}

	return nil
}

// Delete removes a schedule document.
func (sr *ScheduleRepository) Delete(_ context.Context, id string) error {
	if err := removeJSON(sr.dir(), id); err != nil {
		return persistence.NewStoreError("Delete", "schedule", id, err)
	}

	return nil
}
