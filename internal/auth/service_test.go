package auth

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"taskd/internal/apperr"
	"taskd/internal/models"
	"taskd/internal/storage/sqlite"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type fixture struct {
	store   *sqlite.Store
	clock   *fakeClock
	tokens  *TokenService
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "auth.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	tokens := NewTokenService(store, WithClock(clock.Now))
	creds := NewCredentialStore(store, NewPasswordHasher(bcrypt.MinCost))
	return &fixture{
		store:   store,
		clock:   clock,
		tokens:  tokens,
		service: NewService(creds, tokens, 0, nil),
	}
}

func validRegistration() RegisterRequest {
	return RegisterRequest{
		Name:                 "Ann",
		Email:                "ann@example.com",
		Password:             "secret-password",
		PasswordConfirmation: "secret-password",
	}
}

func fieldErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr), "expected *apperr.Error, got %v", err)
	return appErr.Fields
}

func TestRegisterStoresOnlyHash(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.service.Register(ctx, validRegistration()))

	user, err := f.store.FindUserByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.Name)
	assert.NotEqual(t, "secret-password", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret-password")))
}

func TestRegisterValidation(t *testing.T) {
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name   string
		mutate func(*RegisterRequest)
		field  string
	}{
		{"missing name", func(r *RegisterRequest) { r.Name = "" }, "name"},
		{"long name", func(r *RegisterRequest) { r.Name = string(long) }, "name"},
		{"missing email", func(r *RegisterRequest) { r.Email = "" }, "email"},
		{"malformed email", func(r *RegisterRequest) { r.Email = "ann.example.com" }, "email"},
		{"short password", func(r *RegisterRequest) { r.Password, r.PasswordConfirmation = "short", "short" }, "password"},
		{"password over 72 bytes", func(r *RegisterRequest) {
			r.Password = strings.Repeat("p", 80)
			r.PasswordConfirmation = r.Password
		}, "password"},
		{"multibyte password over 72 bytes", func(r *RegisterRequest) {
			r.Password = strings.Repeat("ü", 40)
			r.PasswordConfirmation = r.Password
		}, "password"},
		{"confirmation mismatch", func(r *RegisterRequest) { r.PasswordConfirmation = "different-password" }, "password_confirmation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := validRegistration()
			tt.mutate(&req)

			err := f.service.Register(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrValidation))
			assert.Contains(t, fieldErrors(t, err), tt.field)
		})
	}
}

func TestRegisterAcceptsSeventyTwoBytePassword(t *testing.T) {
	f := newFixture(t)
	req := validRegistration()
	req.Password = strings.Repeat("p", 72)
	req.PasswordConfirmation = req.Password

	require.NoError(t, f.service.Register(context.Background(), req))
	_, err := f.service.Login(context.Background(), LoginRequest{Email: req.Email, Password: req.Password})
	assert.NoError(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.service.Register(ctx, validRegistration()))
	err := f.service.Register(ctx, validRegistration())

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrDuplicateEmail))
	assert.Equal(t, []string{"The email has already been taken."}, fieldErrors(t, err)["email"])
}

// staleLookup hides existing users from the email lookup, as a concurrent
// registration would.
type staleLookup struct {
	UserStore
}

func (staleLookup) FindUserByEmail(context.Context, string) (models.User, error) {
	return models.User{}, apperr.New(apperr.CodeNotFound, "user not found")
}

func TestCreateReportsDuplicateFromConstraint(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	creds := NewCredentialStore(staleLookup{UserStore: f.store}, NewPasswordHasher(bcrypt.MinCost))

	_, err := creds.Create(ctx, "Ann", "ann@example.com", "secret-password")
	require.NoError(t, err)

	_, err = creds.Create(ctx, "Ann again", "ann@example.com", "secret-password")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrDuplicateEmail))
	assert.Contains(t, fieldErrors(t, err), "email")
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.service.Register(ctx, validRegistration()))

	res, err := f.service.Login(ctx, LoginRequest{Email: "ann@example.com", Password: "secret-password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.NotZero(t, res.UserID)

	id, err := f.service.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.UserID, id.UserID)
	assert.True(t, id.Can("tasks:write"))
	assert.True(t, f.clock.now.Add(DefaultTokenTTL).Equal(id.ExpiresAt))
}

func TestLoginDoesNotRevealWhichPartIsWrong(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.service.Register(ctx, validRegistration()))

	_, wrongPassword := f.service.Login(ctx, LoginRequest{Email: "ann@example.com", Password: "not-the-password"})
	_, unknownEmail := f.service.Login(ctx, LoginRequest{Email: "bob@example.com", Password: "secret-password"})

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.True(t, errors.Is(wrongPassword, apperr.ErrInvalidCredentials))
	assert.True(t, errors.Is(unknownEmail, apperr.ErrInvalidCredentials))
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	assert.Equal(t, fieldErrors(t, wrongPassword), fieldErrors(t, unknownEmail))
}

func TestLoginValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Login(context.Background(), LoginRequest{Email: "nope"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	fields := fieldErrors(t, err)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
}

func TestTokenExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.service.Register(ctx, validRegistration()))

	res, err := f.service.Login(ctx, LoginRequest{Email: "ann@example.com", Password: "secret-password"})
	require.NoError(t, err)

	f.clock.now = f.clock.now.Add(DefaultTokenTTL - time.Second)
	_, err = f.service.Authenticate(ctx, res.Token)
	require.NoError(t, err)

	f.clock.now = f.clock.now.Add(time.Second)
	_, err = f.service.Authenticate(ctx, res.Token)
	assert.True(t, errors.Is(err, apperr.ErrTokenInvalid))
}

func TestVerifyRejectsUnknownTokens(t *testing.T) {
	f := newFixture(t)

	for _, token := range []string{"", "deadbeef"} {
		_, err := f.tokens.Verify(context.Background(), token)
		assert.True(t, errors.Is(err, apperr.ErrTokenInvalid), "token %q", token)
	}
}

func TestLogoutRevokesEverySession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.service.Register(ctx, validRegistration()))
	creds := LoginRequest{Email: "ann@example.com", Password: "secret-password"}

	laptop, err := f.service.Login(ctx, creds)
	require.NoError(t, err)
	phone, err := f.service.Login(ctx, creds)
	require.NoError(t, err)
	assert.NotEqual(t, laptop.Token, phone.Token)

	caller, err := f.service.Authenticate(ctx, laptop.Token)
	require.NoError(t, err)
	require.NoError(t, f.service.Logout(ctx, caller))

	for _, token := range []string{laptop.Token, phone.Token} {
		_, err := f.service.Authenticate(ctx, token)
		assert.True(t, errors.Is(err, apperr.ErrTokenInvalid))
	}

	assert.NoError(t, f.service.Logout(ctx, caller), "logout with no tokens left")
}

func TestCurrentUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.service.Register(ctx, validRegistration()))

	res, err := f.service.Login(ctx, LoginRequest{Email: "ann@example.com", Password: "secret-password"})
	require.NoError(t, err)

	user, err := f.service.CurrentUser(ctx, Identity{UserID: res.UserID})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", user.Email)
}

func TestIdentityCan(t *testing.T) {
	assert.True(t, Identity{Scopes: []string{ScopeAll}}.Can("anything"))
	assert.True(t, Identity{Scopes: []string{"tasks:read"}}.Can("tasks:read"))
	assert.False(t, Identity{Scopes: []string{"tasks:read"}}.Can("tasks:write"))
	assert.False(t, Identity{}.Can("tasks:read"))
}
