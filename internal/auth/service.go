package auth

import (
	"context"
	"log/slog"
	"time"

	"taskd/internal/models"
	"taskd/internal/validation"
)

// DefaultTokenTTL is how long login tokens stay valid.
const DefaultTokenTTL = 24 * time.Hour

// RegisterRequest carries the fields of a sign-up. bcrypt reads at most 72
// bytes of a password, so longer ones are rejected.
type RegisterRequest struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=8,maxbytes=72"`
	PasswordConfirmation string `json:"password_confirmation" validate:"eqfield=Password"`
}

// LoginRequest carries login credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
}

// Service implements registration, login and logout.
type Service struct {
	credentials *CredentialStore
	tokens      *TokenService
	validator   *validation.Validator
	tokenTTL    time.Duration
	logger      *slog.Logger
}

// NewService wires the auth service. A non-positive ttl falls back to
// DefaultTokenTTL.
func NewService(credentials *CredentialStore, tokens *TokenService, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{
		credentials: credentials,
		tokens:      tokens,
		validator:   validation.New(),
		tokenTTL:    ttl,
		logger:      logger,
	}
}

// Register validates req and creates the account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}
	user, err := s.credentials.Create(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	s.logger.Info("user registered", slog.Int64("user_id", user.ID))
	return nil
}

// Login checks credentials and issues a token with every scope.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return LoginResult{}, err
	}
	user, err := s.credentials.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return LoginResult{}, err
	}
	token, err := s.tokens.Issue(ctx, user, []string{ScopeAll}, s.tokenTTL)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, UserID: user.ID}, nil
}

// Logout revokes every token of the caller, not just the one in use.
func (s *Service) Logout(ctx context.Context, caller Identity) error {
	if err := s.tokens.RevokeAll(ctx, caller.UserID); err != nil {
		return err
	}
	s.logger.Info("user logged out", slog.Int64("user_id", caller.UserID))
	return nil
}

// Authenticate resolves a bearer token to the caller's identity.
func (s *Service) Authenticate(ctx context.Context, token string) (Identity, error) {
	return s.tokens.Verify(ctx, token)
}

// CurrentUser returns the account of the caller.
func (s *Service) CurrentUser(ctx context.Context, caller Identity) (models.User, error) {
	return s.credentials.User(ctx, caller.UserID)
}
