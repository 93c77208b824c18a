package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"taskd/internal/apperr"
	"taskd/internal/models"
)

// UserStore is the persistence port for user accounts. Missing users are
// reported with an error matching apperr.ErrNotFound, and taken emails with
// apperr.ErrDuplicateEmail.
type UserStore interface {
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	FindUserByID(ctx context.Context, id int64) (models.User, error)
}

const invalidCredentialsMessage = "The provided credentials are incorrect."

// CredentialStore creates users and checks their passwords.
type CredentialStore struct {
	users  UserStore
	hasher *PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

// NewCredentialStore creates a CredentialStore.
func NewCredentialStore(users UserStore, hasher *PasswordHasher) *CredentialStore {
	return &CredentialStore{users: users, hasher: hasher}
}

// Create hashes password and stores a new user.
func (c *CredentialStore) Create(ctx context.Context, name, email, password string) (models.User, error) {
	if _, err := c.users.FindUserByEmail(ctx, email); err == nil {
		return models.User{}, apperr.Field(apperr.CodeDuplicateEmail, "email", "The email has already been taken.")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return models.User{}, err
	}

	hash, err := c.hasher.Hash(password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	return c.users.CreateUser(ctx, models.User{Name: name, Email: email, PasswordHash: hash})
}

// Authenticate returns the user owning email if password matches. Unknown
// emails and wrong passwords produce the same error, and both run one bcrypt
// comparison.
func (c *CredentialStore) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	user, err := c.users.FindUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			return models.User{}, err
		}
		c.hasher.Verify(password, c.dummy())
		return models.User{}, invalidCredentials()
	}
	if !c.hasher.Verify(password, user.PasswordHash) {
		return models.User{}, invalidCredentials()
	}
	return user, nil
}

// User looks up a user by id.
func (c *CredentialStore) User(ctx context.Context, id int64) (models.User, error) {
	return c.users.FindUserByID(ctx, id)
}

func (c *CredentialStore) dummy() string {
	c.dummyOnce.Do(func() {
		// Hashing a fixed string cannot fail at a valid cost.
		c.dummyHash, _ = c.hasher.Hash("taskd-dummy-password")
	})
	return c.dummyHash
}

func invalidCredentials() error {
	return apperr.Field(apperr.CodeInvalidCredentials, "email", invalidCredentialsMessage)
}
