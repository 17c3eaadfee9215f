package curve

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDepositAmounts(t *testing.T) {
	tests := []struct {
		name                           string
		reserveX, reserveY, supply, lp uint64
		wantX, wantY                   uint64
		wantErr                        error
	}{
		{"proportional", 1000, 2000, 1000, 100, 100, 200, nil},
		{"rounds up", 1000, 1000, 3, 1, 334, 334, nil},
		{"full supply", 10, 20, 5, 5, 10, 20, nil},
		{"empty supply", 1000, 2000, 0, 100, 0, 0, ErrZeroSupply},
		{"zero amount", 1000, 2000, 1000, 0, 0, 0, ErrZeroAmount},
		{"overflow", math.MaxUint64, 1, 1, 2, 0, 0, ErrOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, err := DepositAmounts(tt.reserveX, tt.reserveY, tt.supply, tt.lp)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantX, x)
			require.Equal(t, tt.wantY, y)
		})
	}
}

func TestWithdrawAmounts(t *testing.T) {
	tests := []struct {
		name                           string
		reserveX, reserveY, supply, lp uint64
		wantX, wantY                   uint64
		wantErr                        error
	}{
		{"quarter", 1000, 2000, 1000, 250, 250, 500, nil},
		{"rounds down", 1000, 1000, 3, 1, 333, 333, nil},
		{"whole supply", 1001, 7, 1000, 1000, 1001, 7, nil},
		{"exceeds supply", 1000, 1000, 10, 11, 0, 0, ErrExceedSupply},
		{"zero supply", 1000, 1000, 0, 1, 0, 0, ErrZeroSupply},
		{"zero amount", 1000, 1000, 10, 0, 0, 0, ErrZeroAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, err := WithdrawAmounts(tt.reserveX, tt.reserveY, tt.supply, tt.lp)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantX, x)
			require.Equal(t, tt.wantY, y)
		})
	}
}

func TestDepositThenWithdrawNeverProfits(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		reserveX := uint64(r.Int63n(1_000_000_000) + 1)
		reserveY := uint64(r.Int63n(1_000_000_000) + 1)
		supply := uint64(r.Int63n(1_000_000_000) + 1)
		lp := uint64(r.Int63n(1_000_000) + 1)

		x, y, err := DepositAmounts(reserveX, reserveY, supply, lp)
		require.NoError(t, err)

		outX, outY, err := WithdrawAmounts(reserveX+x, reserveY+y, supply+lp, lp)
		require.NoError(t, err)
		require.LessOrEqual(t, outX, x)
		require.LessOrEqual(t, outY, y)
	}
}

func TestWithdrawMonotonic(t *testing.T) {
	var prevX, prevY uint64
	for lp := uint64(1); lp <= 500; lp++ {
		x, y, err := WithdrawAmounts(12345, 67890, 500, lp)
		require.NoError(t, err)
		require.GreaterOrEqual(t, x, prevX)
		require.GreaterOrEqual(t, y, prevY)
		prevX, prevY = x, y
	}
}

func TestSwap(t *testing.T) {
	res, err := Swap(1000, 1000, 0, PairX, 1000)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), res.Deposit)
	require.Equal(t, uint64(500), res.Withdraw)
	require.Zero(t, res.Fee)

	res, err = Swap(1_000_000, 2_000_000, 30, PairX, 10_000)
	require.NoError(t, err)
	require.Equal(t, uint64(30), res.Fee)
	// 2_000_000 * 9970 / 1_009_970
	require.Equal(t, uint64(19743), res.Withdraw)

	res, err = Swap(1_000_000, 2_000_000, 30, PairY, 10_000)
	require.NoError(t, err)
	// 1_000_000 * 9970 / 2_009_970
	require.Equal(t, uint64(4960), res.Withdraw)
}

func TestSwapErrors(t *testing.T) {
	_, err := Swap(0, 10, 0, PairX, 1)
	require.ErrorIs(t, err, ErrZeroReserve)

	_, err = Swap(10, 10, 0, PairX, 0)
	require.ErrorIs(t, err, ErrZeroAmount)

	_, err = Swap(10, 10, MaxFeeBps, PairX, 1)
	require.ErrorIs(t, err, ErrInvalidFee)

	_, err = Swap(math.MaxUint64, 10, 0, PairX, 1)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestSwapKeepsInvariant(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		reserveX := uint64(r.Int63n(1<<40) + 1)
		reserveY := uint64(r.Int63n(1<<40) + 1)
		amount := uint64(r.Int63n(1<<40) + 1)
		fee := uint16(r.Intn(MaxFeeBps))
		pair := Pair(r.Intn(2))

		res, err := Swap(reserveX, reserveY, fee, pair, amount)
		require.NoError(t, err)

		newX, newY := reserveX+res.Deposit, reserveY-res.Withdraw
		if pair == PairY {
			newX, newY = reserveX-res.Withdraw, reserveY+res.Deposit
		}
		require.True(t, Invariant(newX, newY).Cmp(Invariant(reserveX, reserveY)) >= 0,
			"product decreased: %d*%d -> %d*%d", reserveX, reserveY, newX, newY)
	}
}

func TestSwapFeeMonotonic(t *testing.T) {
	prev := uint64(math.MaxUint64)
	for fee := uint16(0); fee < MaxFeeBps; fee += 97 {
		res, err := Swap(5_000_000, 5_000_000, fee, PairX, 100_000)
		require.NoError(t, err)
		require.LessOrEqual(t, res.Withdraw, prev)
		prev = res.Withdraw
	}
}
