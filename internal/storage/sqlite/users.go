package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taskd/internal/apperr"
	"taskd/internal/models"
)

const userColumns = `id, name, email, password, created_at, updated_at`

// CreateUser inserts a new user. A taken email yields apperr.ErrDuplicateEmail.
func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	now := time.Now().UTC()
	res, err := s.q.ExecContext(ctx, `INSERT INTO users(name, email, password, created_at, updated_at) VALUES(?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.PasswordHash, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, apperr.Field(apperr.CodeDuplicateEmail, "email", "The email has already been taken.")
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("user id: %w", err)
	}
	return s.FindUserByID(ctx, id)
}

// FindUserByID fetches a user by primary key.
func (s *Store) FindUserByID(ctx context.Context, id int64) (models.User, error) {
	return s.scanUser(s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// FindUserByEmail fetches a user by exact email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.scanUser(s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (s *Store) scanUser(row *sql.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.New(apperr.CodeNotFound, "user not found")
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
