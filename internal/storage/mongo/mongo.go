package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/lugondev/go-amm/internal/config"
	"github.com/lugondev/go-amm/internal/storage"
)

type MongoRepository struct {
	client         *mongo.Client
	database       *mongo.Database
	accounts       *mongo.Collection
	invocations    *mongo.Collection
	accountRepo    storage.AccountRepository
	invocationRepo storage.InvocationRepository
}

func clientOptions(cfg *config.MongoDBConfig) *options.ClientOptions {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetRetryWrites(true).
		SetRetryReads(true)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.MinPoolSize > 0 {
		opts.SetMinPoolSize(cfg.MinPoolSize)
	}
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(time.Duration(cfg.ConnectTimeout) * time.Second)
	}
	return opts
}

func NewMongoRepository(ctx context.Context, cfg *config.MongoDBConfig) (*MongoRepository, error) {
	client, err := mongo.Connect(ctx, clientOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	repo := newRepository(client, client.Database(cfg.Database))
	if err := repo.createIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return repo, nil
}

func newRepository(client *mongo.Client, database *mongo.Database) *MongoRepository {
	repo := &MongoRepository{
		client:      client,
		database:    database,
		accounts:    database.Collection("accounts"),
		invocations: database.Collection("invocations"),
	}
	repo.accountRepo = &mongoAccountRepository{collection: repo.accounts}
	repo.invocationRepo = &mongoInvocationRepository{collection: repo.invocations}
	return repo
}

func (r *MongoRepository) createIndexes(ctx context.Context) error {
	indexes := []struct {
		collection *mongo.Collection
		models     []mongo.IndexModel
	}{
		{
			collection: r.accounts,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "pubkey", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "slot", Value: -1}}},
			},
		},
		{
			collection: r.invocations,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "scenario", Value: 1}, {Key: "created_at", Value: 1}}},
				{Keys: bson.D{{Key: "created_at", Value: -1}}},
				{Keys: bson.D{{Key: "error_code", Value: 1}}},
			},
		},
	}

	for _, idx := range indexes {
		if _, err := idx.collection.Indexes().CreateMany(ctx, idx.models); err != nil {
			return err
		}
	}
	return nil
}

func (r *MongoRepository) Accounts() storage.AccountRepository {
	return r.accountRepo
}

func (r *MongoRepository) Invocations() storage.InvocationRepository {
	return r.invocationRepo
}

func (r *MongoRepository) Close() error {
	if r.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return r.client.Disconnect(ctx)
	}
	return nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}
