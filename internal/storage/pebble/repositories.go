package pebble

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/lugondev/go-amm/internal/storage"
)

const (
	prefixAccount         = "a/"
	prefixAccountOwner    = "o/"
	prefixInvocation      = "i/"
	prefixInvocationTime  = "t/"
	prefixInvocationScene = "s/"
)

type pebbleAccountRepository struct {
	repo *PebbleRepository
}

func accountKey(pubkey string) []byte { return key(prefixAccount, pubkey) }

func ownerKey(owner, pubkey string) []byte { return key(prefixAccountOwner, owner, "/", pubkey) }

func (r *pebbleAccountRepository) Save(ctx context.Context, account *storage.AccountModel) error {
	return r.SaveBatch(ctx, []*storage.AccountModel{account})
}

func (r *pebbleAccountRepository) SaveBatch(ctx context.Context, accounts []*storage.AccountModel) error {
	if len(accounts) == 0 {
		return nil
	}
	if r.repo.db == nil {
		return ErrDBClosed
	}

	batch := r.repo.db.NewBatch()
	defer batch.Close()

	for _, account := range accounts {
		stored := *account
		var prev storage.AccountModel
		found, err := r.repo.get(accountKey(account.Pubkey), &prev)
		if err != nil {
			return err
		}
		if found {
			stored.CreatedAt = prev.CreatedAt
			if prev.Owner != stored.Owner {
				if err := batch.Delete(ownerKey(prev.Owner, prev.Pubkey), nil); err != nil {
					return err
				}
			}
		}

		value, err := json.Marshal(&stored)
		if err != nil {
			return fmt.Errorf("encode account %s: %w", stored.Pubkey, err)
		}
		if err := batch.Set(accountKey(stored.Pubkey), value, nil); err != nil {
			return err
		}
		if err := batch.Set(ownerKey(stored.Owner, stored.Pubkey), []byte(stored.Pubkey), nil); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

func (r *pebbleAccountRepository) FindByPubkey(ctx context.Context, pubkey string) (*storage.AccountModel, error) {
	var account storage.AccountModel
	found, err := r.repo.get(accountKey(pubkey), &account)
	if err != nil || !found {
		return nil, err
	}
	return &account, nil
}

func (r *pebbleAccountRepository) FindByOwner(ctx context.Context, owner string, limit int, offset int) ([]*storage.AccountModel, error) {
	var accounts []*storage.AccountModel
	err := r.repo.scan(key(prefixAccountOwner, owner, "/"), false, func(_, value []byte) (bool, error) {
		account, err := r.FindByPubkey(ctx, string(value))
		if err != nil {
			return false, err
		}
		if account != nil {
			accounts = append(accounts, account)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	storage.SortAccounts(accounts)
	return storage.Page(accounts, limit, offset), nil
}

func (r *pebbleAccountRepository) Delete(ctx context.Context, pubkey string) error {
	account, err := r.FindByPubkey(ctx, pubkey)
	if err != nil || account == nil {
		return err
	}

	batch := r.repo.db.NewBatch()
	defer batch.Close()
	if err := batch.Delete(accountKey(pubkey), nil); err != nil {
		return err
	}
	if err := batch.Delete(ownerKey(account.Owner, pubkey), nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

type pebbleInvocationRepository struct {
	repo *PebbleRepository
}

func invocationKey(id string) []byte { return key(prefixInvocation, id) }

func scenarioPrefix(scenario string) []byte { return key(prefixInvocationScene, scenario, "\x00") }

func (r *pebbleInvocationRepository) Save(ctx context.Context, invocation *storage.InvocationModel) error {
	return r.SaveBatch(ctx, []*storage.InvocationModel{invocation})
}

func (r *pebbleInvocationRepository) SaveBatch(ctx context.Context, invocations []*storage.InvocationModel) error {
	if len(invocations) == 0 {
		return nil
	}
	if r.repo.db == nil {
		return ErrDBClosed
	}

	batch := r.repo.db.NewBatch()
	defer batch.Close()

	for _, invocation := range invocations {
		var prev storage.InvocationModel
		found, err := r.repo.get(invocationKey(invocation.ID), &prev)
		if err != nil {
			return err
		}
		if found {
			at := be64(prev.CreatedAt.UnixNano())
			if err := batch.Delete(key(prefixInvocationTime, at, prev.ID), nil); err != nil {
				return err
			}
			if err := batch.Delete(key(string(scenarioPrefix(prev.Scenario)), at, prev.ID), nil); err != nil {
				return err
			}
		}

		value, err := json.Marshal(invocation)
		if err != nil {
			return fmt.Errorf("encode invocation %s: %w", invocation.ID, err)
		}
		at := be64(invocation.CreatedAt.UnixNano())
		id := []byte(invocation.ID)
		if err := batch.Set(invocationKey(invocation.ID), value, nil); err != nil {
			return err
		}
		if err := batch.Set(key(prefixInvocationTime, at, invocation.ID), id, nil); err != nil {
			return err
		}
		if err := batch.Set(key(string(scenarioPrefix(invocation.Scenario)), at, invocation.ID), id, nil); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

func (r *pebbleInvocationRepository) FindByID(ctx context.Context, id string) (*storage.InvocationModel, error) {
	var invocation storage.InvocationModel
	found, err := r.repo.get(invocationKey(id), &invocation)
	if err != nil || !found {
		return nil, err
	}
	return &invocation, nil
}

func (r *pebbleInvocationRepository) FindByScenario(ctx context.Context, scenario string, limit int, offset int) ([]*storage.InvocationModel, error) {
	return r.collect(ctx, scenarioPrefix(scenario), false, limit, offset)
}

func (r *pebbleInvocationRepository) FindRecent(ctx context.Context, limit int) ([]*storage.InvocationModel, error) {
	return r.collect(ctx, []byte(prefixInvocationTime), true, limit, 0)
}

func (r *pebbleInvocationRepository) collect(ctx context.Context, prefix []byte, reverse bool, limit, offset int) ([]*storage.InvocationModel, error) {
	var invocations []*storage.InvocationModel
	skipped := 0
	err := r.repo.scan(prefix, reverse, func(_, value []byte) (bool, error) {
		if skipped < offset {
			skipped++
			return true, nil
		}
		invocation, err := r.FindByID(ctx, string(value))
		if err != nil {
			return false, err
		}
		if invocation != nil {
			invocations = append(invocations, invocation)
		}
		return limit <= 0 || len(invocations) < limit, nil
	})
	if err != nil {
		return nil, err
	}
	return invocations, nil
}
