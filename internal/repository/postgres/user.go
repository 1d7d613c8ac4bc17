package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/hospital-api/internal/model"
)

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

type userRepository struct {
	db sqlx.ExtContext
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (name, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	err := sqlx.GetContext(ctx, r.db, &user.ID, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapError(err))
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user model.User
	if err := sqlx.GetContext(ctx, r.db, &user, query, id); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", mapError(err))
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	var user model.User
	if err := sqlx.GetContext(ctx, r.db, &user, query, email); err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", mapError(err))
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, role model.Role) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []interface{}{}
	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, role)
	}
	query += ` ORDER BY id ASC`

	users := []*model.User{}
	if err := sqlx.SelectContext(ctx, r.db, &users, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *userRepository) ListByIDs(ctx context.Context, ids []int64) ([]*model.User, error) {
	users := []*model.User{}
	if len(ids) == 0 {
		return users, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1) ORDER BY id ASC`
	if err := sqlx.SelectContext(ctx, r.db, &users, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to list users by id: %w", err)
	}
	return users, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET name = $1, email = $2, updated_at = $3
		WHERE id = $4
	`

	user.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query, user.Name, user.Email, user.UpdatedAt, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", mapError(err))
	}
	return checkRowsAffected(result)
}
