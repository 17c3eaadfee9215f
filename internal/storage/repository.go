package storage

import (
	"context"
)

// Lookups by key return (nil, nil) when nothing is stored under it.

type AccountRepository interface {
	Save(ctx context.Context, account *AccountModel) error
	SaveBatch(ctx context.Context, accounts []*AccountModel) error
	FindByPubkey(ctx context.Context, pubkey string) (*AccountModel, error)
	FindByOwner(ctx context.Context, owner string, limit int, offset int) ([]*AccountModel, error)
	Delete(ctx context.Context, pubkey string) error
}

type InvocationRepository interface {
	Save(ctx context.Context, invocation *InvocationModel) error
	SaveBatch(ctx context.Context, invocations []*InvocationModel) error
	FindByID(ctx context.Context, id string) (*InvocationModel, error)
	FindByScenario(ctx context.Context, scenario string, limit int, offset int) ([]*InvocationModel, error)
	FindRecent(ctx context.Context, limit int) ([]*InvocationModel, error)
}

type Repository interface {
	Accounts() AccountRepository
	Invocations() InvocationRepository
	Close() error
	Ping(ctx context.Context) error
}
