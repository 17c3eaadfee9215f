package processor

import (
	"context"

	"github.com/lugondev/go-amm/internal/account"
	"github.com/lugondev/go-amm/internal/authority"
	amerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/instruction"
	"github.com/lugondev/go-amm/internal/metrics"
	"github.com/lugondev/go-amm/internal/state"
	"github.com/lugondev/go-amm/pkg/types"
	"github.com/lugondev/go-amm/pkg/view"
)

// InitializeProcessor creates a pool record and its LP mint.
//
// Both accounts are created at their program-derived addresses, funded by the
// initializer. The record starts Initialized and the LP mint has the pool as
// mint authority and no freeze authority.
type InitializeProcessor struct{}

func (InitializeProcessor) Process(_ context.Context, inv *Invocation, _ *metrics.Collection) error {
	accs, err := account.ResolveInitialize(inv.Accounts)
	if err != nil {
		return err
	}
	args, form, err := instruction.DecodeInitialize(inv.Payload)
	if err != nil {
		return err
	}

	host := inv.Host
	rent := host.Rent()

	poolSigner := authority.PoolSigner(args.Seed, args.MintX, args.MintY, args.ConfigBump)
	if err := host.CreateAccount(
		accs.Initializer, accs.Config,
		rent.MinimumBalance(state.PoolConfigLen), state.PoolConfigLen,
		host.ProgramID(), poolSigner,
	); err != nil {
		return amerrors.TransferFailed("create pool record", err)
	}

	lpSigner := authority.LPMintSigner(accs.Config.Key(), args.LPBump)
	if err := host.CreateAccount(
		accs.Initializer, accs.MintLP,
		rent.MinimumBalance(view.MintLen), view.MintLen,
		types.TokenProgramID, lpSigner,
	); err != nil {
		return amerrors.TransferFailed("create lp mint", err)
	}

	pool, err := state.LoadMutUnchecked(accs.Config)
	if err != nil {
		return err
	}
	err = pool.SetInner(args.Seed, args.Authority, args.MintX, args.MintY, args.FeeBps, args.ConfigBump)
	pool.Release()
	if err != nil {
		return err
	}

	if err := host.InitializeMint(accs.MintLP, LPDecimals, accs.Config.Key(), nil); err != nil {
		return amerrors.TransferFailed("initialize lp mint", err)
	}

	host.Logger().Info("pool initialized",
		"pool", accs.Config.Key().String(),
		"lp_mint", accs.MintLP.Key().String(),
		"mint_x", args.MintX.String(),
		"mint_y", args.MintY.String(),
		"fee_bps", args.FeeBps,
		"admin", form == instruction.FormLong,
	)
	return nil
}
