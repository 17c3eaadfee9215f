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

// WithdrawProcessor burns LP tokens and pays out the proportional reserves.
//
// Withdraw stays open while the pool is WithdrawOnly. Burning the whole supply
// empties both vaults.
type WithdrawProcessor struct{}

func (WithdrawProcessor) Process(_ context.Context, inv *Invocation, _ *metrics.Collection) error {
	accs, err := account.ResolveWithdraw(inv.Accounts)
	if err != nil {
		return err
	}
	args, err := instruction.DecodeWithdraw(inv.Payload)
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

	// Uninitialized is let through here; a record in that state never
	// survives Initialize, so only a foreign writer could produce one.
	if pool.State == state.Disabled {
		return amerrors.WrongLifecyclePhase(instruction.OpWithdraw.String(), pool.State.String())
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

	var x, y uint64
	if args.Amount == supply {
		x, y = reserveX, reserveY
	} else {
		x, y, err = curve.WithdrawAmounts(reserveX, reserveY, supply, args.Amount)
		if err != nil {
			return amerrors.ArithmeticFailure(err)
		}
	}
	if x < args.MinX {
		return amerrors.SlippageExceeded("withdraw x", x, args.MinX)
	}
	if y < args.MinY {
		return amerrors.SlippageExceeded("withdraw y", y, args.MinY)
	}

	if err := host.Burn(accs.MintLP, accs.UserLP, accs.User, args.Amount); err != nil {
		return amerrors.TransferFailed("burn lp", err)
	}
	signer := pool.Signer()
	if err := host.Transfer(accs.VaultX, accs.UserX, accs.Config, x, signer); err != nil {
		return amerrors.TransferFailed("withdraw x", err)
	}
	if err := host.Transfer(accs.VaultY, accs.UserY, accs.Config, y, signer); err != nil {
		return amerrors.TransferFailed("withdraw y", err)
	}

	host.Logger().Debug("liquidity withdrawn",
		"pool", accs.Config.Key().String(),
		"lp", args.Amount,
		"x", x,
		"y", y,
	)
	return nil
}
