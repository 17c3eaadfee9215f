package processor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lugondev/go-amm/internal/authority"
	amerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/runtime"
	"github.com/lugondev/go-amm/pkg/types"
	"github.com/lugondev/go-amm/pkg/view"
)

// Host is what the operations need from the runtime executing them.
type Host interface {
	Context() context.Context
	ProgramID() types.Pubkey
	Clock() runtime.Clock
	Rent() runtime.Rent
	Logger() *slog.Logger

	CreateAccount(from, to *runtime.AccountInfo, lamports, space uint64, owner types.Pubkey, signers ...authority.Signer) error
	InitializeMint(mint *runtime.AccountInfo, decimals uint8, mintAuthority types.Pubkey, freezeAuthority *types.Pubkey) error
	Transfer(from, to, auth *runtime.AccountInfo, amount uint64, signers ...authority.Signer) error
	MintTo(mint, to, auth *runtime.AccountInfo, amount uint64, signers ...authority.Signer) error
	Burn(mint, from, auth *runtime.AccountInfo, amount uint64, signers ...authority.Signer) error
}

var _ Host = (*runtime.InvokeContext)(nil)

// Invocation is the input of every operation processor.
type Invocation struct {
	Host     Host
	Accounts []*runtime.AccountInfo
	// Payload is the instruction data after the opcode byte.
	Payload []byte
}

func checkExpiration(host Host, expiration int64) error {
	now := host.Clock().UnixTimestamp
	if now > expiration {
		return amerrors.ExpiredRequest(now, expiration)
	}
	return nil
}

// vaultBalance reads the amount of a pool vault, which must be the associated
// token account of pool for mint.
func vaultBalance(info *runtime.AccountInfo, pool, mint types.Pubkey) (uint64, error) {
	want, err := authority.FindVaultAddress(pool, mint)
	if err != nil {
		return 0, amerrors.InvalidAccountOwnership(fmt.Sprintf("vault of pool %s", pool)).WithCause(err)
	}
	if !info.Key().Equals(want) {
		return 0, amerrors.InvalidAccountOwnership(fmt.Sprintf("vault %s is not the %s vault of pool %s", info.Key(), mint, pool))
	}
	if !info.Owner().Equals(types.TokenProgramID) {
		return 0, amerrors.InvalidAccountOwnership(fmt.Sprintf("vault %s", info.Key()))
	}
	ref, err := info.Borrow()
	if err != nil {
		return 0, amerrors.BorrowFailed("vault", err)
	}
	defer ref.Release()

	v, err := view.NewTokenAccountView(ref.Data())
	if err != nil {
		return 0, amerrors.InvalidRecordState(fmt.Sprintf("vault %s is not a token account", info.Key())).WithCause(err)
	}
	if !v.Owner().Equals(pool) || !v.Mint().Equals(mint) {
		return 0, amerrors.InvalidAccountOwnership(fmt.Sprintf("vault %s is not bound to pool %s", info.Key(), pool))
	}
	return v.Amount(), nil
}

// lpSupply reads the supply of the LP mint.
func lpSupply(info *runtime.AccountInfo) (uint64, error) {
	if !info.Owner().Equals(types.TokenProgramID) {
		return 0, amerrors.InvalidAccountOwnership(fmt.Sprintf("lp mint %s", info.Key()))
	}
	ref, err := info.Borrow()
	if err != nil {
		return 0, amerrors.BorrowFailed("lp mint", err)
	}
	defer ref.Release()

	v, err := view.NewMintView(ref.Data())
	if err != nil {
		return 0, amerrors.InvalidRecordState(fmt.Sprintf("lp mint %s is not a mint", info.Key())).WithCause(err)
	}
	return v.Supply(), nil
}
