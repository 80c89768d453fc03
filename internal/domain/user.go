package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUsernameExists = errors.New("username already exists")
)

// User is the identity a participant or sender refers to
type User struct {
	ID        string    `json:"_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}
