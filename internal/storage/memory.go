package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps everything in process. It is the default journal and
// the reference behaviour the database backends follow.
type MemoryRepository struct {
	accounts    *memoryAccountRepository
	invocations *memoryInvocationRepository
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts:    &memoryAccountRepository{byPubkey: make(map[string]*AccountModel)},
		invocations: &memoryInvocationRepository{byID: make(map[string]int)},
	}
}

func (r *MemoryRepository) Accounts() AccountRepository { return r.accounts }

func (r *MemoryRepository) Invocations() InvocationRepository { return r.invocations }

func (r *MemoryRepository) Close() error { return nil }

func (r *MemoryRepository) Ping(ctx context.Context) error { return ctx.Err() }

type memoryAccountRepository struct {
	mu       sync.RWMutex
	byPubkey map[string]*AccountModel
}

func (r *memoryAccountRepository) Save(ctx context.Context, account *AccountModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *account
	if prev, ok := r.byPubkey[account.Pubkey]; ok {
		stored.CreatedAt = prev.CreatedAt
	}
	r.byPubkey[account.Pubkey] = &stored
	return nil
}

func (r *memoryAccountRepository) SaveBatch(ctx context.Context, accounts []*AccountModel) error {
	for _, account := range accounts {
		if err := r.Save(ctx, account); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryAccountRepository) FindByPubkey(ctx context.Context, pubkey string) (*AccountModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.byPubkey[pubkey]
	if !ok {
		return nil, nil
	}
	out := *account
	return &out, nil
}

func (r *memoryAccountRepository) FindByOwner(ctx context.Context, owner string, limit int, offset int) ([]*AccountModel, error) {
	r.mu.RLock()
	var accounts []*AccountModel
	for _, account := range r.byPubkey {
		if account.Owner == owner {
			out := *account
			accounts = append(accounts, &out)
		}
	}
	r.mu.RUnlock()

	SortAccounts(accounts)
	return Page(accounts, limit, offset), nil
}

func (r *memoryAccountRepository) Delete(ctx context.Context, pubkey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byPubkey, pubkey)
	return nil
}

type memoryInvocationRepository struct {
	mu   sync.RWMutex
	log  []*InvocationModel
	byID map[string]int
}

func (r *memoryInvocationRepository) Save(ctx context.Context, invocation *InvocationModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *invocation
	if i, ok := r.byID[invocation.ID]; ok {
		r.log[i] = &stored
		return nil
	}
	r.byID[invocation.ID] = len(r.log)
	r.log = append(r.log, &stored)
	return nil
}

func (r *memoryInvocationRepository) SaveBatch(ctx context.Context, invocations []*InvocationModel) error {
	for _, invocation := range invocations {
		if err := r.Save(ctx, invocation); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryInvocationRepository) FindByID(ctx context.Context, id string) (*InvocationModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	out := *r.log[i]
	return &out, nil
}

func (r *memoryInvocationRepository) FindByScenario(ctx context.Context, scenario string, limit int, offset int) ([]*InvocationModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var invocations []*InvocationModel
	for _, invocation := range r.log {
		if invocation.Scenario == scenario {
			out := *invocation
			invocations = append(invocations, &out)
		}
	}
	return Page(invocations, limit, offset), nil
}

func (r *memoryInvocationRepository) FindRecent(ctx context.Context, limit int) ([]*InvocationModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	invocations := make([]*InvocationModel, 0, len(r.log))
	for i := len(r.log) - 1; i >= 0; i-- {
		out := *r.log[i]
		invocations = append(invocations, &out)
	}
	return Page(invocations, limit, 0), nil
}

// SortAccounts orders by slot descending, then pubkey.
func SortAccounts(accounts []*AccountModel) {
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].Slot != accounts[j].Slot {
			return accounts[i].Slot > accounts[j].Slot
		}
		return accounts[i].Pubkey < accounts[j].Pubkey
	})
}

// Page applies limit and offset. A non-positive limit means no limit.
func Page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	if offset > 0 {
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
