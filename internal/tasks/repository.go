package tasks

import (
	"context"

	"taskd/internal/models"
)

// Repository is the persistence port of the Engine. Lookups of missing rows
// return an error matching apperr.ErrNotFound.
type Repository interface {
	CreateTask(ctx context.Context, t models.Task) (models.Task, error)
	GetTask(ctx context.Context, id int64) (models.Task, error)
	TaskExists(ctx context.Context, id int64) (bool, error)
	// UpdateTask writes the mutable columns of t: title, description,
	// status, priority, completed, completed_at and created_at.
	UpdateTask(ctx context.Context, t models.Task) error
	DeleteTask(ctx context.Context, id int64) error
	ListRootTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	// ListChildren returns the direct children of every id in parentIDs.
	ListChildren(ctx context.Context, parentIDs []int64) ([]models.Task, error)
	// InTx runs fn with a Repository bound to a single transaction, which
	// commits when fn returns nil.
	InTx(ctx context.Context, fn func(Repository) error) error
}
