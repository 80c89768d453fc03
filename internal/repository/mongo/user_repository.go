package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fakeso-chat/internal/domain"
	"fakeso-chat/internal/observability"
	"fakeso-chat/internal/repository/document"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserRepository implements domain.UserRepository for MongoDB
type UserRepository struct {
	coll *mongo.Collection
}

// NewUserRepository creates a new MongoDB user repository
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

// Create inserts a new user, relying on the unique username index
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	defer observability.ObserveStore(backend, "create_user", time.Now())

	doc, err := document.NewUser(user, now())
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUsernameExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	defer observability.ObserveStore(backend, "get_user", time.Now())

	oid, ok := document.ParseID(id)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	defer observability.ObserveStore(backend, "get_user_by_username", time.Now())
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc document.User
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return doc.ToDomain(), nil
}
