package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskd/internal/apperr"
	"taskd/internal/models"
)

// CreateToken persists a hashed access token.
func (s *Store) CreateToken(ctx context.Context, t models.AccessToken) (models.AccessToken, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	res, err := s.q.ExecContext(ctx, `INSERT INTO personal_access_tokens(user_id, name, token_hash, abilities, expires_at, created_at)
        VALUES(?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Name, t.TokenHash, strings.Join(t.Scopes, " "), t.ExpiresAt.UTC(), t.CreatedAt.UTC())
	if err != nil {
		return models.AccessToken{}, fmt.Errorf("insert token: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.AccessToken{}, fmt.Errorf("token id: %w", err)
	}
	t.ID = id
	return t, nil
}

// FindTokenByHash fetches a token by the hash of its plaintext value.
// Expiry is not checked here.
func (s *Store) FindTokenByHash(ctx context.Context, hash string) (models.AccessToken, error) {
	var (
		t         models.AccessToken
		abilities string
	)
	err := s.q.QueryRowContext(ctx, `SELECT id, user_id, name, token_hash, abilities, expires_at, created_at
        FROM personal_access_tokens WHERE token_hash = ?`, hash).
		Scan(&t.ID, &t.UserID, &t.Name, &t.TokenHash, &abilities, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AccessToken{}, apperr.New(apperr.CodeNotFound, "token not found")
	}
	if err != nil {
		return models.AccessToken{}, fmt.Errorf("get token: %w", err)
	}
	t.Scopes = strings.Fields(abilities)
	return t, nil
}

// DeleteUserTokens removes every token of the user and reports how many
// were removed.
func (s *Store) DeleteUserTokens(ctx context.Context, userID int64) (int64, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM personal_access_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete tokens: %w", err)
	}
	return res.RowsAffected()
}
