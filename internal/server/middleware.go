package server

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taskd/internal/apperr"
	"taskd/internal/auth"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	identityKey     = "identity"
)

// requestID propagates the caller's request id or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
			slog.String("request_id", c.GetString(requestIDKey)))
	}
}

// requireToken authenticates the bearer token and stores the caller's
// identity on the context. A non-empty scope must be granted by the token.
func (s *Server) requireToken(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			s.respondError(c, apperr.New(apperr.CodeUnauthenticated, "Unauthenticated."))
			return
		}

		identity, err := s.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			s.respondError(c, err)
			return
		}

		if scope != "" && !identity.Can(scope) {
			s.respondError(c, apperr.New(apperr.CodeForbidden, "This action is unauthorized."))
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// caller returns the identity set by requireToken.
func caller(c *gin.Context) auth.Identity {
	identity, _ := c.MustGet(identityKey).(auth.Identity)
	return identity
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
