package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskd/internal/apperr"
	"taskd/internal/auth"
	"taskd/internal/tasks"
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server provides the HTTP API for authentication and tasks.
type Server struct {
	engine *gin.Engine
	auth   *auth.Service
	tasks  *tasks.Engine
	db     Pinger
	logger *slog.Logger
}

// New constructs the HTTP server with routes and middleware configured.
func New(authService *auth.Service, taskEngine *tasks.Engine, db Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(requestLogger(logger))

	srv := &Server{
		engine: router,
		auth:   authService,
		tasks:  taskEngine,
		db:     db,
		logger: logger,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)
		api.POST("/register", s.handleRegister)
		api.POST("/login", s.handleLogin)

		session := s.requireToken("")
		api.POST("/logout", session, s.handleLogout)
		api.GET("/user", session, s.handleCurrentUser)

		read := s.requireToken(auth.ScopeTasksRead)
		write := s.requireToken(auth.ScopeTasksWrite)
		api.GET("/tasks", read, s.handleListTasks)
		api.POST("/tasks/create", write, s.handleCreateTask)
		api.PATCH("/tasks/:id/update", write, s.handleUpdateTask)
		api.DELETE("/tasks/:id/delete", write, s.handleDeleteTask)
	}

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	if s.db != nil {
		if err := s.db.Ping(c.Request.Context()); err != nil {
			s.logger.Error("health check failed", slog.String("error", err.Error()))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID converts a path parameter to int64. Malformed ids are reported as
// a missing task.
func (s *Server) parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		s.respondError(c, apperr.New(apperr.CodeNotFound, "Task not found"))
		return 0, false
	}
	return id, true
}

// respondError maps err to its status and JSON payload. Errors outside the
// apperr taxonomy are logged and hidden behind a 500.
func (s *Server) respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		s.logger.Error("request failed",
			slog.String("path", c.FullPath()),
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.String("error", err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	status := apperr.HTTPStatus(appErr.Code)
	if len(appErr.Fields) > 0 {
		c.AbortWithStatusJSON(status, gin.H{"message": appErr.Message, "errors": appErr.Fields})
		return
	}
	if status == http.StatusUnauthorized {
		c.AbortWithStatusJSON(status, gin.H{"message": appErr.Message})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": appErr.Message})
}

// respondSuccess writes payload as JSON, or only the status when payload is nil.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
