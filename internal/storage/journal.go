package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lugondev/go-amm/internal/runtime"
	"github.com/lugondev/go-amm/pkg/types"
)

// AccountSource reads committed account state, e.g. a runtime.Bank.
type AccountSource interface {
	Account(key types.Pubkey) (*types.Account, bool)
}

// Journal records executed invocations and the accounts they left behind.
type Journal struct {
	repo   Repository
	logger *slog.Logger
}

func NewJournal(repo Repository, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{repo: repo, logger: logger}
}

// Repository returns the backing repository.
func (j *Journal) Repository() Repository { return j.repo }

// Record saves the invocation. When it committed, every writable account it
// referenced is snapshotted from src; accounts that no longer exist are removed.
func (j *Journal) Record(ctx context.Context, scenario string, receipt *runtime.Receipt, src AccountSource) error {
	model := ReceiptToModel(scenario, receipt)
	if err := j.repo.Invocations().Save(ctx, model); err != nil {
		return fmt.Errorf("save invocation %s: %w", model.ID, err)
	}
	if !receipt.Succeeded() {
		return nil
	}

	seen := make(map[types.Pubkey]bool)
	var snapshots []*AccountModel
	for _, meta := range receipt.Instruction.Accounts {
		if !meta.IsWritable || seen[meta.Pubkey] {
			continue
		}
		seen[meta.Pubkey] = true

		acc, ok := src.Account(meta.Pubkey)
		if !ok {
			if err := j.repo.Accounts().Delete(ctx, meta.Pubkey.String()); err != nil {
				return fmt.Errorf("delete account %s: %w", meta.Pubkey, err)
			}
			continue
		}
		snapshots = append(snapshots, AccountToModel(meta.Pubkey, acc, receipt.Slot))
	}

	if err := j.repo.Accounts().SaveBatch(ctx, snapshots); err != nil {
		return fmt.Errorf("save account snapshots: %w", err)
	}

	j.logger.Debug("invocation journaled",
		"invocation", model.ID,
		"operation", model.Operation,
		"accounts", len(snapshots),
	)
	return nil
}

// Snapshot saves the current state of every key src still holds.
func (j *Journal) Snapshot(ctx context.Context, keys []types.Pubkey, src AccountSource, slot uint64) error {
	snapshots := make([]*AccountModel, 0, len(keys))
	for _, key := range keys {
		if acc, ok := src.Account(key); ok {
			snapshots = append(snapshots, AccountToModel(key, acc, slot))
		}
	}
	if err := j.repo.Accounts().SaveBatch(ctx, snapshots); err != nil {
		return fmt.Errorf("save final accounts: %w", err)
	}
	return nil
}
