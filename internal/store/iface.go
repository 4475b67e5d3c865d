package store

import (
	"context"

	"github.com/israrulhaq-IFL/task-assignment-system/internal/taskview"
	"github.com/israrulhaq-IFL/task-assignment-system/pkg/models"
)

// Store is the persistence interface for tasks, interactions, and org
// lookups. Implementations: the SQLite store in this package (default) and
// *postgres.Store.
//
// Listing methods return raw joined rows; callers collapse them with
// taskview.Assemble. Scoped listings additionally left-join the filter
// user's interactions onto each row.
type Store interface {
	// Tasks
	CreateTask(ctx context.Context, t NewTask) (int64, error)
	GetTask(ctx context.Context, taskID int64) ([]taskview.Row, error)
	ListTasks(ctx context.Context, limit int) ([]taskview.Row, error)
	ListTasksScoped(ctx context.Context, f ScopeFilter, limit int) ([]taskview.Row, error)
	ListTasksByDepartment(ctx context.Context, departmentID int64, limit int) ([]taskview.Row, error)
	ListTasksBySubDepartment(ctx context.Context, subDepartmentID int64, limit int) ([]taskview.Row, error)
	UpdateTask(ctx context.Context, taskID int64, u TaskUpdate) error
	UpdateTaskStatus(ctx context.Context, taskID int64, status string) error
	UpdateTaskTargetDate(ctx context.Context, taskID int64, targetDate string) error
	DeleteTask(ctx context.Context, taskID int64) error

	// Interactions (append-only)
	LogInteraction(ctx context.Context, in models.Interaction) (models.Interaction, error)
	ListUserTaskInteractions(ctx context.Context, userID, taskID int64) ([]models.Interaction, error)
	ListTaskInteractions(ctx context.Context, taskID int64) ([]models.Interaction, error)

	// Org
	GetUser(ctx context.Context, userID int64) (models.User, error)

	// Lifecycle
	SeedDemo(ctx context.Context) error
	Close() error
}
