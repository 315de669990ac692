package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"claycutter/internal/model"
)

type UserService struct {
	db *sql.DB
}

func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, role, created_at, updated_at
		FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return users, nil
}

// UserUpdate carries the optional fields of a user edit; nil means keep.
type UserUpdate struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

func (s *UserService) Update(ctx context.Context, id string, in UserUpdate) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, created_at, updated_at FROM users WHERE id = $1`, id)

	var user model.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, validation("name must not be empty")
		}
		user.Name = *in.Name
	}
	if in.Email != nil {
		if strings.TrimSpace(*in.Email) == "" || !strings.Contains(*in.Email, "@") {
			return nil, validation("a valid email is required")
		}
		user.Email = *in.Email
	}
	if in.Role != nil {
		role, err := model.ParseRole(*in.Role)
		if err != nil {
			return nil, validation(err.Error())
		}
		user.Role = role
	}

	row = s.db.QueryRowContext(ctx, `
		UPDATE users SET name = $1, email = $2, role = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at`,
		user.Name, user.Email, user.Role, id)
	if err := row.Scan(&user.UpdatedAt); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	return &user, nil
}

// Delete removes a user. Deleting the acting account is rejected so an
// admin cannot lock themselves out.
func (s *UserService) Delete(ctx context.Context, id, actorID string) error {
	if id == actorID {
		return ErrSelfDelete
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
