package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// NewPostgresConnection creates a new PostgreSQL database connection
func NewPostgresConnection(ctx context.Context, dbURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// NewMongoDatabase connects to MongoDB and returns the named database
func NewMongoDatabase(ctx context.Context, uri, database string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10*time.Second).
		SetMaxPoolSize(25))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping failed: %w", err)
	}

	return client.Database(database), nil
}

// NewBadgerDB opens a badger database in dir, or in memory when dir is empty
func NewBadgerDB(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return db, nil
}
