package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskd/internal/apperr"
	"taskd/internal/models"
	"taskd/internal/tasks"
)

type listQuery struct {
	Status   string `form:"status"`
	Priority string `form:"priority"`
	Title    string `form:"title"`
}

// handleListTasks returns every root task with its subtasks nested.
func (s *Server) handleListTasks(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.respondError(c, malformedBody(err))
		return
	}

	req := tasks.ListRequest{Status: q.Status, Title: q.Title}
	if q.Priority != "" {
		p, err := strconv.Atoi(q.Priority)
		if err != nil {
			s.respondError(c, apperr.Validation(map[string][]string{
				"priority": {"The priority field must be an integer."},
			}))
			return
		}
		req.Priority = &p
	}

	forest, err := s.tasks.List(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if forest == nil {
		forest = []*models.Task{}
	}
	respondSuccess(c, http.StatusOK, forest)
}

// handleCreateTask stores a new task owned by the caller.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req tasks.CreateRequest
	if err := decodeStrict(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	task, err := s.tasks.Create(c.Request.Context(), caller(c).UserID, req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"message": "Task created successfully.", "task": task})
}

// handleUpdateTask replaces the mutable fields of one of the caller's tasks.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}

	var req tasks.UpdateRequest
	if err := decodeStrict(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	if err := s.tasks.Update(c.Request.Context(), caller(c).UserID, id, req); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"success": "Task updated successfully"})
}

// handleDeleteTask removes one of the caller's tasks.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	if err := s.tasks.Destroy(c.Request.Context(), caller(c).UserID, id); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"success": "Task deleted successfully"})
}

// decodeStrict decodes a single JSON value into dst and rejects unknown
// fields and trailing data. An empty body decodes to the zero value.
func decodeStrict(c *gin.Context, dst any) error {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return malformedBody(err)
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return malformedBody(errors.New("unexpected data after the JSON object"))
	}
	return nil
}

// malformedBody converts a decoding failure into a validation error.
func malformedBody(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return apperr.Validation(map[string][]string{
			typeErr.Field: {fmt.Sprintf("The %s field has an invalid type.", typeErr.Field)},
		})
	}
	return apperr.Validation(map[string][]string{
		"body": {"The request body is invalid: " + err.Error()},
	})
}
