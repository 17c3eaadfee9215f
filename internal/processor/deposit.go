package processor

import (
	"context"

	"github.com/lugondev/go-amm/internal/account"
	"github.com/lugondev/go-amm/internal/curve"
	amerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/instruction"
	"github.com/lugondev/go-amm/internal/metrics"
	"github.com/lugondev/go-amm/internal/state"
)

// DepositProcessor adds liquidity and mints LP tokens to the depositor.
//
// The first deposit into an empty pool takes MaxX and MaxY verbatim and sets
// the price. Later deposits pay the proportional share of both reserves.
type DepositProcessor struct{}

func (DepositProcessor) Process(_ context.Context, inv *Invocation, _ *metrics.Collection) error {
	accs, err := account.ResolveDeposit(inv.Accounts)
	if err != nil {
		return err
	}
	args, err := instruction.DecodeDeposit(inv.Payload)
	if err != nil {
		return err
	}

	host := inv.Host
	if err := checkExpiration(host, args.Expiration); err != nil {
		return err
	}

	pool, err := state.Load(accs.Config, host.ProgramID())
	if err != nil {
		return err
	}
	defer pool.Release()

	if pool.State != state.Initialized {
		return amerrors.WrongLifecyclePhase(instruction.OpDeposit.String(), pool.State.String())
	}

	supply, err := lpSupply(accs.MintLP)
	if err != nil {
		return err
	}
	reserveX, err := vaultBalance(accs.VaultX, accs.Config.Key(), pool.MintX)
	if err != nil {
		return err
	}
	reserveY, err := vaultBalance(accs.VaultY, accs.Config.Key(), pool.MintY)
	if err != nil {
		return err
	}

	x, y := args.MaxX, args.MaxY
	if supply != 0 {
		x, y, err = curve.DepositAmounts(reserveX, reserveY, supply, args.Amount)
		if err != nil {
			return amerrors.ArithmeticFailure(err)
		}
	}
	if x > args.MaxX {
		return amerrors.SlippageExceeded("deposit x", x, args.MaxX)
	}
	if y > args.MaxY {
		return amerrors.SlippageExceeded("deposit y", y, args.MaxY)
	}

	if err := host.Transfer(accs.UserX, accs.VaultX, accs.User, x); err != nil {
		return amerrors.TransferFailed("deposit x", err)
	}
	if err := host.Transfer(accs.UserY, accs.VaultY, accs.User, y); err != nil {
		return amerrors.TransferFailed("deposit y", err)
	}
	if err := host.MintTo(accs.MintLP, accs.UserLP, accs.Config, args.Amount, pool.Signer()); err != nil {
		return amerrors.TransferFailed("mint lp", err)
	}

	host.Logger().Debug("liquidity deposited",
		"pool", accs.Config.Key().String(),
		"lp", args.Amount,
		"x", x,
		"y", y,
	)
	return nil
}
