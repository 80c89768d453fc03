// Package mongo implements the chat, message and user stores on MongoDB.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const backend = "mongo"

const (
	chatsCollection    = "chats"
	messagesCollection = "messages"
	usersCollection    = "users"
)

// EnsureIndexes creates the unique username index and the participants
// multikey index used by contains-all lookups.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_username_key"),
	})
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	_, err = db.Collection(chatsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "participants", Value: 1}},
		Options: options.Index().SetName("chats_participants_idx"),
	})
	if err != nil {
		return fmt.Errorf("failed to create chats index: %w", err)
	}
	return nil
}
