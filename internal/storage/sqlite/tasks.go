package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskd/internal/apperr"
	"taskd/internal/models"
)

const taskColumns = `id, user_id, parent_id, title, description, status, priority, completed, completed_at, created_at, updated_at`

// maxInParams keeps IN lists well below SQLite's bound-variable limit.
const maxInParams = 500

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateTask inserts a task. A zero CreatedAt defaults to now.
func (s *Store) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}

	res, err := s.q.ExecContext(ctx, `INSERT INTO tasks(user_id, parent_id, title, description, status, priority, completed, completed_at, created_at, updated_at)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, nullInt(t.ParentID), t.Title, nullString(t.Description), string(t.Status),
		t.Priority, t.Completed, nullTime(t.CompletedAt), t.CreatedAt.UTC(), now)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Task{}, fmt.Errorf("task id: %w", err)
	}
	return s.GetTask(ctx, id)
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(ctx context.Context, id int64) (models.Task, error) {
	t, err := scanTask(s.q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, apperr.New(apperr.CodeNotFound, "Task not found")
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// TaskExists reports whether a task with the id exists.
func (s *Store) TaskExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := s.q.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("task exists: %w", err)
	}
	return true, nil
}

// UpdateTask writes the mutable fields of t.
func (s *Store) UpdateTask(ctx context.Context, t models.Task) error {
	res, err := s.q.ExecContext(ctx, `UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?,
        completed = ?, completed_at = ?, created_at = ?, updated_at = ? WHERE id = ?`,
		t.Title, nullString(t.Description), string(t.Status), t.Priority,
		t.Completed, nullTime(t.CompletedAt), t.CreatedAt.UTC(), time.Now().UTC(), t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.New(apperr.CodeNotFound, "Task not found")
	}
	return nil
}

// DeleteTask removes a single task. Its children, if any, become roots.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.New(apperr.CodeNotFound, "Task not found")
	}
	return nil
}

// ListRootTasks returns parentless tasks matching the filter, ordered by id.
func (s *Store) ListRootTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	var (
		where = []string{"parent_id IS NULL"}
		args  []any
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Priority != 0 {
		where = append(where, "priority = ?")
		args = append(args, filter.Priority)
	}
	if filter.Title != "" {
		where = append(where, `unicode_lower(title) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(filter.Title))+"%")
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id`
	return s.queryTasks(ctx, query, args...)
}

// ListChildren returns the direct children of the given parents, ordered by id
// within each batch.
func (s *Store) ListChildren(ctx context.Context, parentIDs []int64) ([]models.Task, error) {
	var out []models.Task
	for start := 0; start < len(parentIDs); start += maxInParams {
		end := min(start+maxInParams, len(parentIDs))
		batch := parentIDs[start:end]

		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")
		query := `SELECT ` + taskColumns + ` FROM tasks WHERE parent_id IN (` + placeholders + `) ORDER BY id`

		tasks, err := s.queryTasks(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		out = append(out, tasks...)
	}
	return out, nil
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func scanTask(row rowScanner) (models.Task, error) {
	var (
		t           models.Task
		parentID    sql.NullInt64
		description sql.NullString
		status      string
		completedAt sql.NullTime
	)
	err := row.Scan(&t.ID, &t.UserID, &parentID, &t.Title, &description, &status, &t.Priority,
		&t.Completed, &completedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.Task{}, err
	}
	t.Status = models.Status(status)
	if parentID.Valid {
		t.ParentID = &parentID.Int64
	}
	if description.Valid {
		t.Description = &description.String
	}
	if completedAt.Valid {
		at := completedAt.Time
		t.CompletedAt = &at
	}
	return t, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: v.UTC(), Valid: true}
}
