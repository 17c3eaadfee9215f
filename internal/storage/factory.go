package storage

import (
	"context"
	"fmt"

	"github.com/lugondev/go-amm/internal/config"
)

var (
	pebbleFactory   func(context.Context, *config.PebbleConfig) (Repository, error)
	mongoFactory    func(context.Context, *config.MongoDBConfig) (Repository, error)
	postgresFactory func(context.Context, *config.PostgresConfig) (Repository, error)
	mysqlFactory    func(context.Context, *config.MySQLConfig) (Repository, error)
)

func RegisterPebbleFactory(factory func(context.Context, *config.PebbleConfig) (Repository, error)) {
	pebbleFactory = factory
}

func RegisterMongoFactory(factory func(context.Context, *config.MongoDBConfig) (Repository, error)) {
	mongoFactory = factory
}

func RegisterPostgresFactory(factory func(context.Context, *config.PostgresConfig) (Repository, error)) {
	postgresFactory = factory
}

func RegisterMySQLFactory(factory func(context.Context, *config.MySQLConfig) (Repository, error)) {
	mysqlFactory = factory
}

func notRegistered(name string) error {
	return fmt.Errorf("%s factory not registered - import _ \"github.com/lugondev/go-amm/internal/storage/%s\"", name, name)
}

func NewPebbleRepositoryFromConfig(ctx context.Context, cfg *config.PebbleConfig) (Repository, error) {
	if pebbleFactory == nil {
		return nil, notRegistered("pebble")
	}
	return pebbleFactory(ctx, cfg)
}

func NewMongoRepositoryFromConfig(ctx context.Context, cfg *config.MongoDBConfig) (Repository, error) {
	if mongoFactory == nil {
		return nil, notRegistered("mongo")
	}
	return mongoFactory(ctx, cfg)
}

func NewPostgresRepositoryFromConfig(ctx context.Context, cfg *config.PostgresConfig) (Repository, error) {
	if postgresFactory == nil {
		return nil, notRegistered("postgres")
	}
	return postgresFactory(ctx, cfg)
}

func NewMySQLRepositoryFromConfig(ctx context.Context, cfg *config.MySQLConfig) (Repository, error) {
	if mysqlFactory == nil {
		return nil, notRegistered("mysql")
	}
	return mysqlFactory(ctx, cfg)
}
