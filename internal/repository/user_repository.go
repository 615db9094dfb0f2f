package repository

import (
	"context"
	"database/sql"

	"movie-discovery/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser creates a new user. A taken username is a conflict.
func (r *UserRepository) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	var user models.User
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email) VALUES ($1, $2)
		RETURNING id, username, email, created_at
	`, req.Username, req.Email).Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt)
	if err != nil {
		return nil, wrapError("create user", err)
	}
	return &user, nil
}

// GetUser returns a user by ID.
func (r *UserRepository) GetUser(ctx context.Context, id int) (*models.User, error) {
	var user models.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, created_at FROM users WHERE id = $1
	`, id).Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt)
	if err != nil {
		return nil, wrapError("get user", err)
	}
	return &user, nil
}
