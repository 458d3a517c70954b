package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"recruitportal/portal-api/internal/database"
)

type SQLUserStore struct {
	db *sqlx.DB
}

func NewSQLUserStore(ctx context.Context, db *sqlx.DB) (*SQLUserStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	s := &SQLUserStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLUserStore) ensureSchema(ctx context.Context) error {
	q := database.DDL(s.db, `
CREATE TABLE IF NOT EXISTS users (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	username VARCHAR(64) NOT NULL UNIQUE,
	password_hash VARCHAR(255) NOT NULL,
	role VARCHAR(16) NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("ensure users schema: %w", err)
	}
	return nil
}

func (s *SQLUserStore) GetByUsername(ctx context.Context, username string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, ErrUserNotFound
	}

	var u User
	q := s.db.Rebind(`SELECT id, username, password_hash, role FROM users WHERE username = ?`)
	if err := s.db.GetContext(ctx, &u, q, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

func (s *SQLUserStore) Put(ctx context.Context, user User) (User, error) {
	if err := validateUser(user); err != nil {
		return User{}, err
	}
	user.Username = strings.TrimSpace(user.Username)

	existing, err := s.GetByUsername(ctx, user.Username)
	switch {
	case err == nil:
		q := s.db.Rebind(`UPDATE users SET password_hash = ?, role = ? WHERE id = ?`)
		if _, err := s.db.ExecContext(ctx, q, user.PasswordHash, string(user.Role), existing.ID); err != nil {
			return User{}, fmt.Errorf("update user: %w", err)
		}
		user.ID = existing.ID
		return user, nil
	case errors.Is(err, ErrUserNotFound):
	default:
		return User{}, err
	}

	id, err := database.InsertID(ctx, s.db,
		`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`,
		user.Username, user.PasswordHash, string(user.Role))
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	user.ID = id
	return user, nil
}
