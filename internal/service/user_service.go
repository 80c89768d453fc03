package service

import (
	"context"
	"errors"
	"fmt"

	"fakeso-chat/internal/domain"
)

// UserService resolves the identities chats refer to.
type UserService struct {
	userRepo domain.UserRepository
}

func NewUserService(userRepo domain.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.userRepo.GetByUsername(ctx, username)
}

func (s *UserService) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// EnsureUser returns the user named username, creating it when missing.
func (s *UserService) EnsureUser(ctx context.Context, username string) (*domain.User, error) {
	if !domain.IsValidIdentifier(username) {
		return nil, fmt.Errorf("%w: invalid username %q", domain.ErrInvalidInput, username)
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.NewPersistenceError("get user", err)
	}

	user = &domain.User{Username: username}
	err = s.userRepo.Create(ctx, user)
	if errors.Is(err, domain.ErrUsernameExists) {
		return s.userRepo.GetByUsername(ctx, username)
	}
	if err != nil {
		return nil, domain.NewPersistenceError("create user", err)
	}
	return user, nil
}
