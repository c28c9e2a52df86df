// Package mocks provides testify mocks for the persistence and event bus
// interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/persistence"
)

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) List(ctx context.Context, opts persistence.ListWorkflowsOptions) (*persistence.WorkflowListResult, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*persistence.WorkflowListResult), args.Error(1)
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockRunRepository is a mock implementation of persistence.RunRepository.
type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) GetByID(ctx context.Context, id string) (*models.Run, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Run), args.Error(1)
}

func (m *MockRunRepository) Save(ctx context.Context, run *models.Run) error {
	args := m.Called(ctx, run)

	return args.Error(0)
}

func (m *MockRunRepository) ListByWorkflow(ctx context.Context, workflowID string, kind models.RunKind) ([]*models.Run, error) {
	args := m.Called(ctx, workflowID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Run), args.Error(1)
}

// MockComponentStatusRepository is a mock implementation of persistence.ComponentStatusRepository.
type MockComponentStatusRepository struct {
	mock.Mock
}

func (m *MockComponentStatusRepository) GetByRunAndComponent(ctx context.Context, runID, componentID string) (*models.ComponentStatus, error) {
	args := m.Called(ctx, runID, componentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ComponentStatus), args.Error(1)
}

func (m *MockComponentStatusRepository) Save(ctx context.Context, status *models.ComponentStatus) error {
	args := m.Called(ctx, status)

	return args.Error(0)
}

func (m *MockComponentStatusRepository) ListByRun(ctx context.Context, runID string) ([]*models.ComponentStatus, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.ComponentStatus), args.Error(1)
}

// MockScheduleRepository is a mock implementation of persistence.ScheduleRepository.
type MockScheduleRepository struct {
	mock.Mock
}

func (m *MockScheduleRepository) List(ctx context.Context) ([]*models.Schedule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Schedule), args.Error(1)
}

func (m *MockScheduleRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Schedule), args.Error(1)
}

func (m *MockScheduleRepository) GetByID(ctx context.Context, id string) (*models.Schedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Schedule), args.Error(1)
}

func (m *MockScheduleRepository) Save(ctx context.Context, schedule *models.Schedule) error {
	args := m.Called(ctx, schedule)

	return args.Error(0)
}

func (m *MockScheduleRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockPersistence is a mock implementation of persistence.Persistence that
// hands out the repository mocks it was built with.
type MockPersistence struct {
	mock.Mock

	WorkflowRepo *MockWorkflowRepository
	RunRepo      *MockRunRepository
	StatusRepo   *MockComponentStatusRepository
	ScheduleRepo *MockScheduleRepository
}

// NewMockPersistence creates a MockPersistence with fresh repository mocks.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		WorkflowRepo: &MockWorkflowRepository{},
		RunRepo:      &MockRunRepository{},
		StatusRepo:   &MockComponentStatusRepository{},
		ScheduleRepo: &MockScheduleRepository{},
	}
}

func (m *MockPersistence) Workflows() persistence.WorkflowRepository {
	return m.WorkflowRepo
}

func (m *MockPersistence) Runs() persistence.RunRepository {
	return m.RunRepo
}

func (m *MockPersistence) Statuses() persistence.ComponentStatusRepository {
	return m.StatusRepo
}

func (m *MockPersistence) Schedules() persistence.ScheduleRepository {
	return m.ScheduleRepo
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
