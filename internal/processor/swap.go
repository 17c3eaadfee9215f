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

// SwapProcessor trades one side of the pool for the other at the
// constant-product price net of the pool fee.
type SwapProcessor struct{}

func (SwapProcessor) Process(_ context.Context, inv *Invocation, _ *metrics.Collection) error {
	accs, err := account.ResolveSwap(inv.Accounts)
	if err != nil {
		return err
	}
	args, err := instruction.DecodeSwap(inv.Payload)
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
		return amerrors.WrongLifecyclePhase(instruction.OpSwap.String(), pool.State.String())
	}

	reserveX, err := vaultBalance(accs.VaultX, accs.Config.Key(), pool.MintX)
	if err != nil {
		return err
	}
	reserveY, err := vaultBalance(accs.VaultY, accs.Config.Key(), pool.MintY)
	if err != nil {
		return err
	}

	pair := curve.PairY
	if args.IsX {
		pair = curve.PairX
	}
	res, err := curve.Swap(reserveX, reserveY, pool.FeeBps, pair, args.Amount)
	if err != nil {
		return amerrors.ArithmeticFailure(err)
	}
	if res.Withdraw < args.Min {
		return amerrors.SlippageExceeded("swap output", res.Withdraw, args.Min)
	}

	signer := pool.Signer()
	if args.IsX {
		if err := host.Transfer(accs.UserX, accs.VaultX, accs.User, res.Deposit); err != nil {
			return amerrors.TransferFailed("swap deposit x", err)
		}
		if err := host.Transfer(accs.VaultY, accs.UserY, accs.Config, res.Withdraw, signer); err != nil {
			return amerrors.TransferFailed("swap withdraw y", err)
		}
	} else {
		if err := host.Transfer(accs.UserY, accs.VaultY, accs.User, res.Deposit); err != nil {
			return amerrors.TransferFailed("swap deposit y", err)
		}
		if err := host.Transfer(accs.VaultX, accs.UserX, accs.Config, res.Withdraw, signer); err != nil {
			return amerrors.TransferFailed("swap withdraw x", err)
		}
	}

	host.Logger().Debug("swapped",
		"pool", accs.Config.Key().String(),
		"is_x", args.IsX,
		"in", res.Deposit,
		"out", res.Withdraw,
		"fee", res.Fee,
	)
	return nil
}
