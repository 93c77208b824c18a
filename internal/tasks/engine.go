// Package tasks enforces the task hierarchy rules: ownership, completion
// blocking by open subtasks, and deletion constraints.
package tasks

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"taskd/internal/apperr"
	"taskd/internal/models"
	"taskd/internal/validation"
)

// Engine applies the task rules on top of a Repository.
type Engine struct {
	repo      Repository
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the clock used for completion timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an Engine backed by repo.
func NewEngine(repo Repository, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		repo:      repo,
		validator: validation.New(),
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// List returns the root tasks matching req, each with its whole subtree.
// Filters apply to roots only.
func (e *Engine) List(ctx context.Context, req ListRequest) ([]*models.Task, error) {
	if err := e.validator.Struct(req); err != nil {
		return nil, err
	}

	filter := models.TaskFilter{
		Status: models.Status(req.Status),
		Title:  strings.ToLower(req.Title),
	}
	if req.Priority != nil {
		filter.Priority = *req.Priority
	}

	var forest []*models.Task
	err := e.repo.InTx(ctx, func(repo Repository) error {
		roots, err := repo.ListRootTasks(ctx, filter)
		if err != nil {
			return err
		}
		forest, err = attachDescendants(ctx, repo, roots)
		return err
	})
	if err != nil {
		return nil, err
	}
	return forest, nil
}

// Create validates req and stores a task owned by owner. The title is
// trimmed before validation.
func (e *Engine) Create(ctx context.Context, owner int64, req CreateRequest) (models.Task, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := e.validator.Struct(req); err != nil {
		return models.Task{}, err
	}

	task := models.Task{
		UserID:      owner,
		ParentID:    req.ParentID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    *req.Priority,
	}
	if req.CreatedAt != nil {
		at, err := parseDate("created_at", *req.CreatedAt)
		if err != nil {
			return models.Task{}, err
		}
		task.CreatedAt = at
	}
	completedAt := e.now().UTC()
	if req.CompletedAt != nil {
		at, err := parseDate("completed_at", *req.CompletedAt)
		if err != nil {
			return models.Task{}, err
		}
		completedAt = at
	}
	task.SetStatus(models.Status(req.Status), completedAt)

	var created models.Task
	err := e.repo.InTx(ctx, func(repo Repository) error {
		if task.ParentID != nil {
			ok, err := repo.TaskExists(ctx, *task.ParentID)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.Validation(map[string][]string{
					"parent_id": {"The selected parent id is invalid."},
				})
			}
		}
		var err error
		created, err = repo.CreateTask(ctx, task)
		return err
	})
	if err != nil {
		return models.Task{}, err
	}

	e.logger.Info("task created", slog.Int64("task_id", created.ID), slog.Int64("user_id", owner))
	return created, nil
}

// Update replaces the mutable fields of a task owned by owner. Completion
// is refused while any direct child is still open.
func (e *Engine) Update(ctx context.Context, owner, id int64, req UpdateRequest) error {
	return e.repo.InTx(ctx, func(repo Repository) error {
		task, err := repo.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if task.UserID != owner {
			return apperr.New(apperr.CodeForbidden, "You do not have permission to edit this task.")
		}

		if models.Status(req.Status) == models.StatusDone {
			children, err := repo.ListChildren(ctx, []int64{id})
			if err != nil {
				return err
			}
			for _, child := range children {
				if child.Status != models.StatusDone {
					return apperr.New(apperr.CodeUnresolvedSubtasks, "This task has unresolved subtasks.")
				}
			}
		}

		req.Title = strings.TrimSpace(req.Title)
		if err := e.validator.Struct(req); err != nil {
			return err
		}

		task.Title = req.Title
		task.Priority = *req.Priority
		if req.Description != nil {
			if *req.Description == "" {
				task.Description = nil
			} else {
				task.Description = req.Description
			}
		}
		if req.CreatedAt != nil {
			at, err := parseDate("created_at", *req.CreatedAt)
			if err != nil {
				return err
			}
			task.CreatedAt = at
		}
		task.SetStatus(models.Status(req.Status), e.now().UTC())

		if err := repo.UpdateTask(ctx, task); err != nil {
			return err
		}
		e.logger.Info("task updated", slog.Int64("task_id", id), slog.String("status", req.Status))
		return nil
	})
}

// Destroy deletes a single open task owned by owner whose children are all
// complete. Completed children are left in place as roots.
func (e *Engine) Destroy(ctx context.Context, owner, id int64) error {
	return e.repo.InTx(ctx, func(repo Repository) error {
		task, err := repo.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if task.UserID != owner {
			return apperr.New(apperr.CodeForbidden, "You do not have permission to delete this task.")
		}
		if task.Completed {
			return apperr.New(apperr.CodeAlreadyCompleted, "Completed tasks cannot be deleted.")
		}

		children, err := repo.ListChildren(ctx, []int64{id})
		if err != nil {
			return err
		}
		for _, child := range children {
			if !child.Completed {
				return apperr.New(apperr.CodeHasIncompleteSubtasks, "You cannot delete a task that has incomplete subtasks.")
			}
		}

		if err := repo.DeleteTask(ctx, id); err != nil {
			return err
		}
		e.logger.Info("task deleted", slog.Int64("task_id", id), slog.Int("orphaned", len(children)))
		return nil
	})
}

func parseDate(field, value string) (time.Time, error) {
	t, err := validation.ParseDate(value)
	if err != nil {
		return time.Time{}, apperr.Validation(map[string][]string{
			field: {"The " + strings.ReplaceAll(field, "_", " ") + " field must be a valid date."},
		})
	}
	return t, nil
}
