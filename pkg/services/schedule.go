package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/persistence"
)

// Schedule manages recurring full-run entries. The scheduler daemon polls
// due schedules and starts runs through the Run service.
type Schedule struct {
	persistence persistence.Persistence
}

// NewSchedule creates a new schedule service.
func NewSchedule(persistence persistence.Persistence) *Schedule {
	return &Schedule{persistence: persistence}
}

// Create registers a recurring full run for the workflow. The cron
// expression uses the standard 5-field format.
func (s *Schedule) Create(ctx context.Context, workflowID, cronExpression string, validationEnabled bool) (*models.Schedule, error) {
	workflow, err := s.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	schedule, err := models.NewSchedule(uuid.New().String(), workflowID, cronExpression, validationEnabled)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidSchedule, err)
	}

	if err := s.persistence.Schedules().Save(ctx, schedule); err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	return schedule, nil
}

// List returns every schedule.
func (s *Schedule) List(ctx context.Context) ([]*models.Schedule, error) {
	return s.persistence.Schedules().List(ctx)
}

// ListDue returns active schedules whose next execution time has passed.
func (s *Schedule) ListDue(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	return s.persistence.Schedules().ListDue(ctx, now)
}

// FetchByID retrieves a schedule by its ID.
func (s *Schedule) FetchByID(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.persistence.Schedules().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if schedule == nil {
		return nil, ErrScheduleNotFound
	}

	return schedule, nil
}

// SetActive enables or disables a schedule without deleting it.
func (s *Schedule) SetActive(ctx context.Context, id string, active bool) (*models.Schedule, error) {
	schedule, err := s.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if schedule.Active != active {
		schedule.Active = active
		schedule.UpdatedAt = time.Now().UTC()

		if err := s.persistence.Schedules().Save(ctx, schedule); err != nil {
			return nil, fmt.Errorf("failed to update schedule: %w", err)
		}
	}

	return schedule, nil
}

// Advance recomputes the schedule's next execution time and persists it.
// The scheduler calls this after starting a due run so the schedule is not
// picked up again on the next poll.
func (s *Schedule) Advance(ctx context.Context, schedule *models.Schedule) error {
	if err := schedule.UpdateNextDueAt(); err != nil {
		return fmt.Errorf("%w: %w", models.ErrInvalidSchedule, err)
	}

	if err := s.persistence.Schedules().Save(ctx, schedule); err != nil {
		return fmt.Errorf("failed to advance schedule: %w", err)
	}

	return nil
}

// Delete removes a schedule by its ID.
func (s *Schedule) Delete(ctx context.Context, id string) error {
	existing, err := s.persistence.Schedules().GetByID(ctx, id)
	if err != nil {
		return err
	}

	if existing == nil {
		return ErrScheduleNotFound
	}

	if err := s.persistence.Schedules().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	return nil
}
