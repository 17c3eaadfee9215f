// Package runtime is an in-process host for Solana-style programs.
//
// A Bank owns every account, the clock and rent sysvars, and the registered
// program entrypoints. Execute runs one instruction as an atomic invocation:
// each referenced account is snapshotted first and restored if the program
// returns an error, so a failed invocation leaves no observable change.
//
// Programs see accounts through AccountInfo values whose data is reached only
// through capabilities (Ref, RefMut). The arbiter behind them refuses
// conflicting grants and journals every grant in the invocation Receipt.
//
// The host also provides the system and token primitives a program invokes,
// including the check that a program-derived signer is backed by seeds that
// derive to it under the calling program id.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lugondev/go-amm/internal/authority"
	"github.com/lugondev/go-amm/internal/metrics"
	"github.com/lugondev/go-amm/pkg/types"
)

// Entrypoint is the signature of a program registered with a Bank.
type Entrypoint func(ctx *InvokeContext, accounts []*AccountInfo, data []byte) error

// Receipt describes one executed invocation.
type Receipt struct {
	ID            uuid.UUID
	ProgramID     types.Pubkey
	Instruction   types.Instruction
	Slot          uint64
	UnixTimestamp int64
	Grants        []Grant
	Duration      time.Duration
	Err           error
}

// Succeeded reports whether the invocation committed.
func (r *Receipt) Succeeded() bool { return r.Err == nil }

// Bank holds accounts and executes instructions against them one at a time.
type Bank struct {
	mu       sync.Mutex
	accounts map[types.Pubkey]*types.Account
	programs map[types.Pubkey]Entrypoint
	clock    Clock
	rent     Rent
	deriver  *authority.Deriver
	logger   *slog.Logger
	metrics  *metrics.Collection
}

// Option configures a Bank.
type Option func(*Bank)

// WithLogger sets the bank logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bank) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics sets the metrics collection invocations are recorded to.
func WithMetrics(m *metrics.Collection) Option {
	return func(b *Bank) {
		if m != nil {
			b.metrics = m
		}
	}
}

// WithRent overrides the rent sysvar.
func WithRent(rent Rent) Option {
	return func(b *Bank) { b.rent = rent }
}

// WithClock sets the initial clock sysvar.
func WithClock(clock Clock) Option {
	return func(b *Bank) { b.clock = clock }
}

// NewBank creates an empty bank.
func NewBank(opts ...Option) (*Bank, error) {
	deriver, err := authority.NewDeriver(authority.DefaultCacheSize)
	if err != nil {
		return nil, err
	}
	b := &Bank{
		accounts: make(map[types.Pubkey]*types.Account),
		programs: make(map[types.Pubkey]Entrypoint),
		clock:    Clock{UnixTimestamp: time.Now().Unix()},
		rent:     DefaultRent(),
		deriver:  deriver,
		logger:   slog.Default(),
		metrics:  metrics.NewCollection(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// RegisterProgram makes entry executable under id.
func (b *Bank) RegisterProgram(id types.Pubkey, entry Entrypoint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.programs[id] = entry
}

// SetAccount stores a copy of account under key.
func (b *Bank) SetAccount(key types.Pubkey, account *types.Account) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[key] = account.Clone()
}

// Account returns a copy of the account at key.
func (b *Bank) Account(key types.Pubkey) (*types.Account, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[key]
	return acc.Clone(), ok
}

// Keys returns every stored account address in a stable order.
func (b *Bank) Keys() []types.Pubkey {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]types.Pubkey, 0, len(b.accounts))
	for k := range b.accounts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Clock returns the clock sysvar.
func (b *Bank) Clock() Clock {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clock
}

// SetClock moves the clock to unix seconds.
func (b *Bank) SetClock(unix int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clock.UnixTimestamp = unix
}

// AdvanceClock moves the clock forward and bumps the slot.
func (b *Bank) AdvanceClock(seconds int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clock.UnixTimestamp += seconds
	b.clock.Slot++
}

// Rent returns the rent sysvar.
func (b *Bank) Rent() Rent {
	return b.rent
}

// Execute runs ix atomically. The receipt is returned even when the program fails.
func (b *Bank) Execute(ctx context.Context, ix types.Instruction) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.programs[ix.ProgramID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProgramNotFound, ix.ProgramID)
	}

	start := time.Now()
	receipt := &Receipt{
		ID:            uuid.New(),
		ProgramID:     ix.ProgramID,
		Instruction:   ix,
		Slot:          b.clock.Slot,
		UnixTimestamp: b.clock.UnixTimestamp,
	}

	snapshot := b.snapshot(ix.Accounts)
	arb := newArbiter(ix.ProgramID.String())
	infos, signers := b.accountInfos(ix.Accounts, arb)

	ictx := &InvokeContext{
		ctx:       ctx,
		bank:      b,
		programID: ix.ProgramID,
		signers:   signers,
		arbiter:   arb,
		logger:    b.logger.With("invocation", receipt.ID.String()),
	}

	err := entry(ictx, infos, ix.Data)
	receipt.Grants = arb.close()
	receipt.Duration = time.Since(start)
	receipt.Err = err

	_ = b.metrics.RecordInvocation(ctx, receipt.Duration, err != nil)

	if err != nil {
		b.restore(snapshot)
		b.logger.Debug("invocation rolled back",
			"invocation", receipt.ID.String(),
			"program", ix.ProgramID.String(),
			"error", err,
		)
		return receipt, err
	}

	b.purgeUnused(ix.Accounts)
	b.logger.Debug("invocation committed",
		"invocation", receipt.ID.String(),
		"program", ix.ProgramID.String(),
		"grants", len(receipt.Grants),
	)
	return receipt, nil
}

// snapshot copies every referenced account. Absent accounts map to nil.
func (b *Bank) snapshot(metas []types.AccountMeta) map[types.Pubkey]*types.Account {
	snap := make(map[types.Pubkey]*types.Account, len(metas))
	for _, m := range metas {
		if _, done := snap[m.Pubkey]; done {
			continue
		}
		snap[m.Pubkey] = b.accounts[m.Pubkey].Clone()
	}
	return snap
}

func (b *Bank) restore(snap map[types.Pubkey]*types.Account) {
	for key, acc := range snap {
		if acc == nil {
			delete(b.accounts, key)
			continue
		}
		b.accounts[key] = acc
	}
}

func (b *Bank) purgeUnused(metas []types.AccountMeta) {
	for _, m := range metas {
		if acc, ok := b.accounts[m.Pubkey]; ok && acc.IsUnused() {
			delete(b.accounts, m.Pubkey)
		}
	}
}

// accountInfos materializes missing accounts and merges duplicate metas.
func (b *Bank) accountInfos(metas []types.AccountMeta, arb *arbiter) ([]*AccountInfo, map[types.Pubkey]bool) {
	signers := make(map[types.Pubkey]bool)
	writable := make(map[types.Pubkey]bool)
	for _, m := range metas {
		signers[m.Pubkey] = signers[m.Pubkey] || m.IsSigner
		writable[m.Pubkey] = writable[m.Pubkey] || m.IsWritable
	}

	infos := make([]*AccountInfo, len(metas))
	for i, m := range metas {
		acc, ok := b.accounts[m.Pubkey]
		if !ok {
			acc = types.NewSystemAccount(0)
			b.accounts[m.Pubkey] = acc
		}
		infos[i] = &AccountInfo{
			key:      m.Pubkey,
			signer:   signers[m.Pubkey],
			writable: writable[m.Pubkey],
			account:  acc,
			arbiter:  arb,
		}
	}

	for k, ok := range signers {
		if !ok {
			delete(signers, k)
		}
	}
	return infos, signers
}
