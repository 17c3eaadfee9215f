// Package curve implements the constant-product pricing used by the pool.
//
// All intermediate products are computed in 256 bits so no u64 input can
// overflow them. Results that do not fit back into a u64 are reported as
// ErrOverflow. Rounding always favours the pool: amounts the pool collects round
// up, amounts it pays out round down.
package curve

import (
	"errors"

	"github.com/holiman/uint256"
)

// MaxFeeBps is the exclusive upper bound of a swap fee in basis points.
const MaxFeeBps = 10_000

var (
	ErrZeroAmount   = errors.New("curve: zero amount")
	ErrZeroSupply   = errors.New("curve: zero lp supply")
	ErrZeroReserve  = errors.New("curve: zero reserve")
	ErrExceedSupply = errors.New("curve: amount exceeds lp supply")
	ErrInvalidFee   = errors.New("curve: fee out of range")
	ErrOverflow     = errors.New("curve: result overflows u64")
)

// Pair names the side of the pool a swap deposits into.
type Pair uint8

const (
	PairX Pair = iota
	PairY
)

// SwapResult is the outcome of a swap quote.
type SwapResult struct {
	// Deposit is the amount the trader pays into the input vault.
	Deposit uint64
	// Withdraw is the amount the pool pays from the output vault.
	Withdraw uint64
	// Fee is the part of Deposit withheld from pricing.
	Fee uint64
}

// DepositAmounts returns the reserves a depositor must add to mint amount LP
// tokens against a pool with the given reserves and LP supply.
func DepositAmounts(reserveX, reserveY, supply, amount uint64) (x, y uint64, err error) {
	if supply == 0 {
		return 0, 0, ErrZeroSupply
	}
	if amount == 0 {
		return 0, 0, ErrZeroAmount
	}
	if x, err = mulDivCeil(reserveX, amount, supply); err != nil {
		return 0, 0, err
	}
	if y, err = mulDivCeil(reserveY, amount, supply); err != nil {
		return 0, 0, err
	}
	if reserveX+x < reserveX || reserveY+y < reserveY {
		return 0, 0, ErrOverflow
	}
	return x, y, nil
}

// WithdrawAmounts returns the reserves paid out for burning amount LP tokens.
// Burning the whole supply returns the whole reserves.
func WithdrawAmounts(reserveX, reserveY, supply, amount uint64) (x, y uint64, err error) {
	if supply == 0 {
		return 0, 0, ErrZeroSupply
	}
	if amount == 0 {
		return 0, 0, ErrZeroAmount
	}
	if amount > supply {
		return 0, 0, ErrExceedSupply
	}
	if x, err = mulDivFloor(reserveX, amount, supply); err != nil {
		return 0, 0, err
	}
	if y, err = mulDivFloor(reserveY, amount, supply); err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// Swap quotes exchanging amount of the pair side for the other side.
// The fee is withheld from pricing but the whole amount enters the pool, so the
// reserve product never decreases.
func Swap(reserveX, reserveY uint64, feeBps uint16, pair Pair, amount uint64) (SwapResult, error) {
	if feeBps >= MaxFeeBps {
		return SwapResult{}, ErrInvalidFee
	}
	if amount == 0 {
		return SwapResult{}, ErrZeroAmount
	}
	if reserveX == 0 || reserveY == 0 {
		return SwapResult{}, ErrZeroReserve
	}

	reserveIn, reserveOut := reserveX, reserveY
	if pair == PairY {
		reserveIn, reserveOut = reserveY, reserveX
	}
	if reserveIn+amount < reserveIn {
		return SwapResult{}, ErrOverflow
	}

	afterFee, err := mulDivFloor(amount, MaxFeeBps-uint64(feeBps), MaxFeeBps)
	if err != nil {
		return SwapResult{}, err
	}
	out, err := mulDivFloor(reserveOut, afterFee, reserveIn+afterFee)
	if err != nil {
		return SwapResult{}, err
	}

	return SwapResult{
		Deposit:  amount,
		Withdraw: out,
		Fee:      amount - afterFee,
	}, nil
}

// Invariant returns x*y.
func Invariant(x, y uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(x), uint256.NewInt(y))
}

func mulDivFloor(a, b, d uint64) (uint64, error) {
	q, _ := mulDiv(a, b, d)
	if !q.IsUint64() {
		return 0, ErrOverflow
	}
	return q.Uint64(), nil
}

func mulDivCeil(a, b, d uint64) (uint64, error) {
	q, rem := mulDiv(a, b, d)
	if !rem.IsZero() {
		q.AddUint64(q, 1)
	}
	if !q.IsUint64() {
		return 0, ErrOverflow
	}
	return q.Uint64(), nil
}

// mulDiv returns a*b/d and a*b%d. d must be non-zero.
func mulDiv(a, b, d uint64) (*uint256.Int, *uint256.Int) {
	num := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	den := uint256.NewInt(d)
	q, rem := new(uint256.Int), new(uint256.Int)
	q.DivMod(num, den, rem)
	return q, rem
}
