// Package storagetest holds the behaviour every storage.Repository backend
// must share. Backends run it from their own tests.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lugondev/go-amm/internal/storage"
)

// Run exercises repo. It expects an empty repository.
func Run(t *testing.T, repo storage.Repository) {
	t.Helper()
	t.Run("Accounts", func(t *testing.T) { testAccounts(t, repo.Accounts()) })
	t.Run("Invocations", func(t *testing.T) { testInvocations(t, repo.Invocations()) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, repo.Ping(context.Background())) })
}

func account(pubkey, owner string, slot uint64) *storage.AccountModel {
	at := time.Unix(1_700_000_000, 0).UTC()
	return &storage.AccountModel{
		ID:        pubkey,
		Pubkey:    pubkey,
		Lamports:  1_000,
		Data:      []byte{1, 2, 3},
		Owner:     owner,
		Slot:      slot,
		UpdatedAt: at,
		CreatedAt: at,
	}
}

func testAccounts(t *testing.T, accounts storage.AccountRepository) {
	ctx := context.Background()

	missing, err := accounts.FindByPubkey(ctx, "missing")
	require.NoError(t, err)
	require.Nil(t, missing)

	first := account("acc-a", "owner-1", 1)
	require.NoError(t, accounts.Save(ctx, first))
	require.NoError(t, accounts.SaveBatch(ctx, []*storage.AccountModel{
		account("acc-b", "owner-1", 3),
		account("acc-c", "owner-1", 3),
		account("acc-d", "owner-2", 2),
	}))
	require.NoError(t, accounts.SaveBatch(ctx, nil))

	got, err := accounts.FindByPubkey(ctx, "acc-a")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, uint64(1_000), got.Lamports)
	require.Equal(t, []byte{1, 2, 3}, got.Data)
	require.Equal(t, "owner-1", got.Owner)

	updated := account("acc-a", "owner-1", 5)
	updated.Lamports = 7
	updated.CreatedAt = first.CreatedAt.Add(time.Hour)
	require.NoError(t, accounts.Save(ctx, updated))
	got, err = accounts.FindByPubkey(ctx, "acc-a")
	require.NoError(t, err)
	require.Equal(t, uint64(7), got.Lamports)
	require.True(t, first.CreatedAt.Equal(got.CreatedAt), "created_at survives upserts")

	owned, err := accounts.FindByOwner(ctx, "owner-1", 0, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"acc-a", "acc-b", "acc-c"}, pubkeys(owned))

	owned, err = accounts.FindByOwner(ctx, "owner-1", 1, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"acc-b"}, pubkeys(owned))

	moved := account("acc-d", "owner-1", 2)
	require.NoError(t, accounts.Save(ctx, moved))
	owned, err = accounts.FindByOwner(ctx, "owner-2", 0, 0)
	require.NoError(t, err)
	require.Empty(t, owned)

	require.NoError(t, accounts.Delete(ctx, "acc-b"))
	require.NoError(t, accounts.Delete(ctx, "acc-b"))
	got, err = accounts.FindByPubkey(ctx, "acc-b")
	require.NoError(t, err)
	require.Nil(t, got)
	owned, err = accounts.FindByOwner(ctx, "owner-1", 0, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"acc-a", "acc-c", "acc-d"}, pubkeys(owned))
}

func testInvocations(t *testing.T, invocations storage.InvocationRepository) {
	ctx := context.Background()

	missing, err := invocations.FindByID(ctx, "missing")
	require.NoError(t, err)
	require.Nil(t, missing)

	base := time.Unix(1_700_000_000, 0).UTC()
	var batch []*storage.InvocationModel
	for i := 0; i < 4; i++ {
		scenario := "alpha"
		if i%2 == 1 {
			scenario = "beta"
		}
		batch = append(batch, &storage.InvocationModel{
			ID:        fmt.Sprintf("inv-%d", i),
			Scenario:  scenario,
			ProgramID: "program",
			Operation: "swap",
			Accounts:  []string{"a", "b"},
			Data:      []byte{3, 1},
			Slot:      uint64(i),
			Success:   i != 2,
			Grants:    i,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	batch[2].ErrorCode = "SLIPPAGE_EXCEEDED"
	batch[2].ErrorMessage = "slippage exceeded"

	require.NoError(t, invocations.Save(ctx, batch[0]))
	require.NoError(t, invocations.SaveBatch(ctx, batch[1:]))

	got, err := invocations.FindByID(ctx, "inv-2")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.False(t, got.Success)
	require.Equal(t, "SLIPPAGE_EXCEEDED", got.ErrorCode)
	require.Equal(t, []string{"a", "b"}, got.Accounts)
	require.Equal(t, 2, got.Grants)

	alpha, err := invocations.FindByScenario(ctx, "alpha", 0, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"inv-0", "inv-2"}, ids(alpha))

	beta, err := invocations.FindByScenario(ctx, "beta", 1, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"inv-3"}, ids(beta))

	recent, err := invocations.FindRecent(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, []string{"inv-3", "inv-2", "inv-1"}, ids(recent))
}

func pubkeys(accounts []*storage.AccountModel) []string {
	out := make([]string, len(accounts))
	for i, a := range accounts {
		out[i] = a.Pubkey
	}
	return out
}

func ids(invocations []*storage.InvocationModel) []string {
	out := make([]string, len(invocations))
	for i, inv := range invocations {
		out[i] = inv.ID
	}
	return out
}
