package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"claycutter/internal/model"
)

// EnsureAdmin creates the bootstrap admin account on first startup so there
// is always a way to log in. Existing accounts are left alone.
func EnsureAdmin(ctx context.Context, db *sql.DB, name, email, password string) error {
	var existing string
	err := db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE role = $1 LIMIT 1`, model.RoleAdmin,
	).Scan(&existing)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	id := uuid.NewString()
	_, err = db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, role) VALUES ($1, $2, $3, $4, $5)`,
		id, name, email, hash, model.RoleAdmin,
	)
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}

	slog.Info("created bootstrap admin user", "email", email)
	return nil
}
