package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// StoreConfig selects the deployment and database holding conversation contexts
type StoreConfig struct {
	URI      string
	Database string
	// MaxPoolSize bounds concurrent connections; every turn does one read
	// and one write.
	MaxPoolSize uint64
	// DialTimeout bounds the initial connect and ping
	DialTimeout time.Duration
}

// Store is the connection backing the mongo context store
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// Connect opens the store and pings the primary. The URI is never logged
// since it may carry credentials.
func Connect(ctx context.Context, config StoreConfig, logger *zap.Logger) (*Store, error) {
	if config.Database == "" {
		return nil, errors.New("mongo database name is required")
	}
	if config.MaxPoolSize == 0 {
		config.MaxPoolSize = 10
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(config.URI).
		SetAppName("assistbridge").
		SetMaxPoolSize(config.MaxPoolSize).
		SetServerSelectionTimeout(config.DialTimeout).
		SetConnectTimeout(config.DialTimeout)

	ctx, cancel := context.WithTimeout(ctx, config.DialTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to context store: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to reach context store: %w", err)
	}

	logger.Info("Context store connected",
		zap.String("backend", "mongo"),
		zap.String("database", config.Database))

	return &Store{
		client: client,
		db:     client.Database(config.Database),
		logger: logger,
	}, nil
}

// Database returns the database the context collection lives in
func (s *Store) Database() *mongo.Database {
	return s.db
}

// Close disconnects from the deployment
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		s.logger.Warn("Context store disconnect failed", zap.Error(err))
		return err
	}
	return nil
}
