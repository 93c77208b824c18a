package tasks

// ListRequest filters the root tasks returned by List.
type ListRequest struct {
	Status   string `json:"status" validate:"omitempty,oneof=todo done"`
	Priority *int   `json:"priority" validate:"omitempty,min=1,max=5"`
	Title    string `json:"title" validate:"omitempty,taskchars"`
}

// CreateRequest holds the fields accepted when creating a task.
type CreateRequest struct {
	Status      string  `json:"status" validate:"required,oneof=todo done"`
	Priority    *int    `json:"priority" validate:"required,min=1,max=5"`
	Title       string  `json:"title" validate:"required,max=255,taskchars"`
	Description *string `json:"description"`
	ParentID    *int64  `json:"parent_id"`
	CreatedAt   *string `json:"created_at" validate:"omitempty,taskdate"`
	CompletedAt *string `json:"completed_at" validate:"omitempty,taskdate"`
}

// UpdateRequest holds the mutable fields of a task. The parent cannot be
// changed after creation.
type UpdateRequest struct {
	Status      string  `json:"status" validate:"required,oneof=todo done"`
	Priority    *int    `json:"priority" validate:"required,min=1,max=5"`
	Title       string  `json:"title" validate:"required,max=255,taskchars"`
	Description *string `json:"description"`
	CreatedAt   *string `json:"created_at" validate:"omitempty,taskdate"`
	CompletedAt *string `json:"completed_at" validate:"omitempty,taskdate"`
}
