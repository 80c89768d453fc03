package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fakeso-chat/internal/domain"
	"fakeso-chat/internal/observability"
	"fakeso-chat/internal/repository/document"

	"github.com/dgraph-io/badger/v4"
)

// UserRepository implements domain.UserRepository on Badger. Usernames are
// indexed under their own key holding the user id.
type UserRepository struct {
	db *badger.DB
}

// NewUserRepository creates a new Badger user repository
func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new user, failing with ErrUsernameExists on a taken name
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	defer observability.ObserveStore(backend, "create_user", time.Now())

	doc, err := document.NewUser(user, now())
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	err = updateWithRetry(ctx, r.db, func(txn *badger.Txn) error {
		_, err := txn.Get(usernameKey(user.Username))
		if err == nil {
			return domain.ErrUsernameExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := setDoc(txn, userKey(user.ID), doc); err != nil {
			return err
		}
		return txn.Set(usernameKey(user.Username), []byte(user.ID))
	})
	if errors.Is(err, domain.ErrUsernameExists) {
		return domain.ErrUsernameExists
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	defer observability.ObserveStore(backend, "get_user", time.Now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc document.User
	err := r.db.View(func(txn *badger.Txn) error {
		return getDoc(txn, userKey(id), &doc)
	})
	return r.result(&doc, err)
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	defer observability.ObserveStore(backend, "get_user_by_username", time.Now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc document.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(usernameKey(username))
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getDoc(txn, userKey(string(id)), &doc)
	})
	return r.result(&doc, err)
}

func (r *UserRepository) result(doc *document.User, err error) (*domain.User, error) {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return doc.ToDomain(), nil
}
