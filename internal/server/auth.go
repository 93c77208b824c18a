package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskd/internal/auth"
)

// handleRegister creates a new account.
func (s *Server) handleRegister(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, malformedBody(err))
		return
	}
	if err := s.auth.Register(c.Request.Context(), req); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"message": "User registered successfully"})
}

// handleLogin exchanges credentials for a bearer token.
func (s *Server) handleLogin(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, malformedBody(err))
		return
	}
	res, err := s.auth.Login(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, res)
}

// handleLogout revokes every token of the caller.
func (s *Server) handleLogout(c *gin.Context) {
	if err := s.auth.Logout(c.Request.Context(), caller(c)); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"message": "Successfully logged out"})
}

// handleCurrentUser returns the authenticated account.
func (s *Server) handleCurrentUser(c *gin.Context) {
	user, err := s.auth.CurrentUser(c.Request.Context(), caller(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, user)
}
