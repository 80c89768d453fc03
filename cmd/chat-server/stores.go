package main

import (
	"context"
	"fmt"
	"log/slog"

	"fakeso-chat/internal/config"
	"fakeso-chat/internal/domain"
	"fakeso-chat/internal/handler"
	"fakeso-chat/internal/messaging"
	badgerstore "fakeso-chat/internal/repository/badger"
	mongostore "fakeso-chat/internal/repository/mongo"
	"fakeso-chat/internal/repository/postgres"
	"fakeso-chat/internal/websocket"
)

// stores bundles the repositories of the configured backend
type stores struct {
	chats    domain.ChatRepository
	messages domain.MessageRepository
	users    domain.UserRepository
	close    func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		db, err := config.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		slog.Info("connected to postgresql")
		return &stores{
			chats:    postgres.NewChatRepository(db),
			messages: postgres.NewMessageRepository(db),
			users:    postgres.NewUserRepository(db),
			close:    func() { db.Close() },
		}, nil

	case config.StoreMongo:
		db, err := config.NewMongoDatabase(ctx, cfg.MongoURL, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			_ = db.Client().Disconnect(context.Background())
			return nil, err
		}
		slog.Info("connected to mongodb", slog.String("database", cfg.MongoDatabase))
		return &stores{
			chats:    mongostore.NewChatRepository(db),
			messages: mongostore.NewMessageRepository(db),
			users:    mongostore.NewUserRepository(db),
			close:    func() { _ = db.Client().Disconnect(context.Background()) },
		}, nil

	default:
		db, err := config.NewBadgerDB(cfg.BadgerDir)
		if err != nil {
			return nil, err
		}
		slog.Info("opened badger store", slog.Bool("in_memory", cfg.BadgerDir == ""))
		return &stores{
			chats:    badgerstore.NewChatRepository(db),
			messages: badgerstore.NewMessageRepository(db),
			users:    badgerstore.NewUserRepository(db),
			close:    func() { db.Close() },
		}, nil
	}
}

// openBroadcaster returns the broadcaster handlers emit through and the
// readiness checks it contributes. Without a relay the hub broadcasts
// directly.
func openBroadcaster(ctx context.Context, cfg *config.Config, hub *websocket.Hub) (handler.Broadcaster, map[string]handler.Checker, func(), error) {
	var relay messaging.Relay
	switch cfg.RelayBackend {
	case config.RelayRabbitMQ:
		rmq, err := messaging.NewRabbitMQWithRetry(ctx, cfg.RabbitMQURL)
		if err != nil {
			return nil, nil, nil, err
		}
		relay = rmq
	case config.RelayRedis:
		rdb, err := messaging.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		relay = rdb
	default:
		return hub, map[string]handler.Checker{}, func() {}, nil
	}

	broadcaster := messaging.NewRelayBroadcaster(hub, relay)
	if err := broadcaster.Start(ctx); err != nil {
		relay.Close()
		return nil, nil, nil, err
	}
	slog.Info("chat update relay started",
		slog.String("relay", relay.Name()),
		slog.String("origin", broadcaster.Origin()))

	checks := map[string]handler.Checker{relay.Name(): relay}
	return broadcaster, checks, func() { relay.Close() }, nil
}
