package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"taskd/internal/apperr"
	"taskd/internal/models"
)

// Token scopes. Login tokens carry ScopeAll.
const (
	ScopeAll        = "*"
	ScopeTasksRead  = "tasks:read"
	ScopeTasksWrite = "tasks:write"
)

const tokenName = "api-token"

// TokenStore is the persistence port for access tokens.
type TokenStore interface {
	CreateToken(ctx context.Context, t models.AccessToken) (models.AccessToken, error)
	FindTokenByHash(ctx context.Context, hash string) (models.AccessToken, error)
	DeleteUserTokens(ctx context.Context, userID int64) (int64, error)
}

// Identity is the authenticated caller behind a verified token.
type Identity struct {
	UserID    int64
	TokenID   int64
	Scopes    []string
	ExpiresAt time.Time
}

// Can reports whether the identity holds scope, directly or via ScopeAll.
func (i Identity) Can(scope string) bool {
	for _, s := range i.Scopes {
		if s == ScopeAll || s == scope {
			return true
		}
	}
	return false
}

// TokenService issues and verifies opaque bearer tokens.
type TokenService struct {
	store TokenStore
	now   func() time.Time
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces the wall clock used for expiry.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService creates a TokenService.
func NewTokenService(store TokenStore, opts ...TokenOption) *TokenService {
	s := &TokenService{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a token for user valid for ttl and returns its plaintext.
// The plaintext is not recoverable afterwards.
func (s *TokenService) Issue(ctx context.Context, user models.User, scopes []string, ttl time.Duration) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	plain := hex.EncodeToString(buf)

	now := s.now().UTC()
	_, err := s.store.CreateToken(ctx, models.AccessToken{
		UserID:    user.ID,
		Name:      tokenName,
		TokenHash: hashToken(plain),
		Scopes:    scopes,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	})
	if err != nil {
		return "", err
	}
	return plain, nil
}

// Verify resolves a plaintext token to its Identity. Unknown and expired
// tokens both yield apperr.ErrTokenInvalid.
func (s *TokenService) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, tokenInvalid()
	}
	rec, err := s.store.FindTokenByHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Identity{}, tokenInvalid()
		}
		return Identity{}, err
	}
	if !s.now().Before(rec.ExpiresAt) {
		return Identity{}, tokenInvalid()
	}
	return Identity{
		UserID:    rec.UserID,
		TokenID:   rec.ID,
		Scopes:    rec.Scopes,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// RevokeAll deletes every token of the user.
func (s *TokenService) RevokeAll(ctx context.Context, userID int64) error {
	_, err := s.store.DeleteUserTokens(ctx, userID)
	return err
}

func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

func tokenInvalid() error {
	return apperr.New(apperr.CodeTokenInvalid, "Unauthenticated.")
}
