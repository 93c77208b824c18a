package models

import (
	"strings"
	"time"
)

// User is an account that owns tasks and access tokens.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AccessToken is a persisted bearer token. Only the hash of the plaintext
// value is ever stored.
type AccessToken struct {
	ID        int64
	UserID    int64
	Name      string
	TokenHash string
	Scopes    []string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Status is the workflow state of a task.
type Status string

const (
	StatusTodo Status = "todo"
	StatusDone Status = "done"
)

// Task is a node in a user's task forest.
type Task struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	ParentID    *int64     `json:"parent_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      Status     `json:"status"`
	Priority    int        `json:"priority"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Children is only populated by tree listings.
	Children []*Task `json:"children_recursive,omitempty"`
}

// IsRoot reports whether the task has no parent.
func (t Task) IsRoot() bool {
	return t.ParentID == nil
}

// SetStatus updates the status and keeps the completion fields consistent
// with it. completedAt is used when the task becomes done.
func (t *Task) SetStatus(status Status, completedAt time.Time) {
	t.Status = status
	if status == StatusDone {
		t.Completed = true
		at := completedAt
		t.CompletedAt = &at
		return
	}
	t.Completed = false
	t.CompletedAt = nil
}

// TaskFilter narrows the set of root tasks returned by a listing.
// Zero values mean "any".
type TaskFilter struct {
	Status   Status
	Priority int
	Title    string
}

// MaxTitleLength bounds task titles as well as user names and emails.
const MaxTitleLength = 255

// ForbiddenTitleChars lists the characters a task title may not contain.
const ForbiddenTitleChars = "№%@!^&*,"

// ValidTitleChars reports whether s contains none of ForbiddenTitleChars.
func ValidTitleChars(s string) bool {
	return !strings.ContainsAny(s, ForbiddenTitleChars)
}
