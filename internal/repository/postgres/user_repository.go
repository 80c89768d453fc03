package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fakeso-chat/internal/domain"
)

// UserRepository implements domain.UserRepository for PostgreSQL
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = domain.NewID()
	}

	query := `
		INSERT INTO users (id, username)
		VALUES ($1, $2)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, user.ID, user.Username).Scan(&user.CreatedAt)
	if IsUniqueViolation(err, "users_username_key") {
		return domain.ErrUsernameExists
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT id, username, created_at FROM users WHERE id = $1`, id)
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT id, username, created_at FROM users WHERE username = $1`, username)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	user := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Username, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
