package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/go-amm/internal/authority"
	"github.com/lugondev/go-amm/pkg/types"
	"github.com/lugondev/go-amm/pkg/view"
)

func newKey() types.Pubkey { return solana.NewWallet().PublicKey() }

func newBank(t *testing.T) *Bank {
	t.Helper()
	b, err := NewBank(WithClock(Clock{Slot: 1, UnixTimestamp: 1_700_000_000}))
	require.NoError(t, err)
	return b
}

func run(t *testing.T, b *Bank, program types.Pubkey, entry Entrypoint, metas ...types.AccountMeta) (*Receipt, error) {
	t.Helper()
	b.RegisterProgram(program, entry)
	return b.Execute(context.Background(), types.Instruction{ProgramID: program, Accounts: metas})
}

type tokenFixture struct {
	mint, owner, a, b types.Pubkey
}

func setupTokens(b *Bank, amountA uint64) tokenFixture {
	f := tokenFixture{mint: newKey(), owner: newKey(), a: newKey(), b: newKey()}
	b.SetMint(f.mint, 6, f.owner, amountA)
	b.SetTokenAccount(f.a, f.mint, f.owner, amountA)
	b.SetTokenAccount(f.b, f.mint, newKey(), 0)
	return f
}

func TestRentMinimumBalance(t *testing.T) {
	require.Equal(t, uint64(1_642_560), DefaultRent().MinimumBalance(108))
	require.True(t, DefaultRent().IsExempt(1_642_560, 108))
	require.False(t, DefaultRent().IsExempt(1_642_559, 108))
}

func TestExecuteUnknownProgram(t *testing.T) {
	b := newBank(t)
	_, err := b.Execute(context.Background(), types.Instruction{ProgramID: newKey()})
	require.ErrorIs(t, err, ErrProgramNotFound)
}

func TestTransferCommits(t *testing.T) {
	b := newBank(t)
	f := setupTokens(b, 100)

	receipt, err := run(t, b, newKey(), func(ctx *InvokeContext, accs []*AccountInfo, _ []byte) error {
		return ctx.Transfer(accs[1], accs[2], accs[0], 40)
	},
		types.Meta(f.owner, true, false),
		types.Meta(f.a, false, true),
		types.Meta(f.b, false, true),
	)
	require.NoError(t, err)
	require.True(t, receipt.Succeeded())

	got, err := b.TokenBalance(f.a)
	require.NoError(t, err)
	require.Equal(t, uint64(60), got)
	got, err = b.TokenBalance(f.b)
	require.NoError(t, err)
	require.Equal(t, uint64(40), got)

	require.Empty(t, OverlappingExclusive(receipt.Grants))
	for _, g := range receipt.Grants {
		require.Equal(t, types.TokenProgramID.String(), g.Holder)
		require.True(t, g.Exclusive)
	}
}

func TestFailedInvocationRollsBack(t *testing.T) {
	b := newBank(t)
	f := setupTokens(b, 100)
	created := newKey()
	b.FundSystemAccount(f.owner, 1_000_000_000)
	boom := errors.New("boom")

	_, err := run(t, b, newKey(), func(ctx *InvokeContext, accs []*AccountInfo, _ []byte) error {
		if err := ctx.Transfer(accs[1], accs[2], accs[0], 40); err != nil {
			return err
		}
		if err := ctx.CreateAccount(accs[0], accs[3], 1000, 10, ctx.ProgramID()); err != nil {
			return err
		}
		return boom
	},
		types.Meta(f.owner, true, true),
		types.Meta(f.a, false, true),
		types.Meta(f.b, false, true),
		types.Meta(created, true, true),
	)
	require.ErrorIs(t, err, boom)

	got, err := b.TokenBalance(f.a)
	require.NoError(t, err)
	require.Equal(t, uint64(100), got)

	_, ok := b.Account(created)
	require.False(t, ok, "created account must not survive rollback")

	owner, ok := b.Account(f.owner)
	require.True(t, ok)
	require.Equal(t, uint64(1_000_000_000), owner.Lamports)
}

func TestTransferFailures(t *testing.T) {
	tests := []struct {
		name    string
		signer  bool
		amount  uint64
		useAuth func(f tokenFixture) types.Pubkey
		wantErr error
	}{
		{"insufficient funds", true, 101, func(f tokenFixture) types.Pubkey { return f.owner }, ErrInsufficientFunds},
		{"missing signature", false, 1, func(f tokenFixture) types.Pubkey { return f.owner }, ErrMissingSignature},
		{"wrong owner", true, 1, func(tokenFixture) types.Pubkey { return newKey() }, ErrOwnerMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBank(t)
			f := setupTokens(b, 100)
			_, err := run(t, b, newKey(), func(ctx *InvokeContext, accs []*AccountInfo, _ []byte) error {
				return ctx.Transfer(accs[1], accs[2], accs[0], tt.amount)
			},
				types.Meta(tt.useAuth(f), tt.signer, false),
				types.Meta(f.a, false, true),
				types.Meta(f.b, false, true),
			)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTransferMintMismatch(t *testing.T) {
	b := newBank(t)
	f := setupTokens(b, 100)
	other := newKey()
	b.SetTokenAccount(other, newKey(), newKey(), 0)

	_, err := run(t, b, newKey(), func(ctx *InvokeContext, accs []*AccountInfo, _ []byte) error {
		return ctx.Transfer(accs[1], accs[2], accs[0], 1)
	},
		types.Meta(f.owner, true, false),
		types.Meta(f.a, false, true),
		types.Meta(other, false, true),
	)
	require.ErrorIs(t, err, ErrMintMismatch)
}

func TestCreateAccountWithProgramSigner(t *testing.T) {
	b := newBank(t)
	program := newKey()
	payer := newKey()
	b.FundSystemAccount(payer, 10_000_000)

	pool, bump, err := authority.FindLPMintAddress(program, payer)
	require.NoError(t, err)

	_, err = run(t, b, program, func(ctx *InvokeContext, accs []*AccountInfo, _ []byte) error {
		lamports := ctx.Rent().MinimumBalance(view.MintLen)
		if err := ctx.CreateAccount(accs[0], accs[1], lamports, view.MintLen, types.TokenProgramID,
			authority.LPMintSigner(payer, bump)); err != nil {
			return err
		}
		return ctx.InitializeMint(accs[1], 6, accs[0].Key(), nil)
	},
		types.Meta(payer, true, true),
		types.Meta(pool, false, true),
	)
	require.NoError(t, err)

	supply, err := b.MintSupply(pool)
	require.NoError(t, err)
	require.Zero(t, supply)

	acc, ok := b.Account(pool)
	require.True(t, ok)
	require.Equal(t, types.TokenProgramID, acc.Owner)
	require.Equal(t, DefaultRent().MinimumBalance(view.MintLen), acc.Lamports)
}

func TestCreateAccountRejectsForeignSeeds(t *testing.T) {
	b := newBank(t)
	program := newKey()
	payer := newKey()
	b.FundSystemAccount(payer, 10_000_000)

	target, bump, err := authority.FindLPMintAddress(program, payer)
	require.NoError(t, err)

	_, err = run(t, b, program, func(ctx *InvokeContext, accs []*AccountInfo, _ []byte) error {
		return ctx.CreateAccount(accs[0], accs[1], 1, 1, ctx.ProgramID(), authority.LPMintSigner(newKey(), bump))
	},
		types.Meta(payer, true, true),
		types.Meta(target, false, true),
	)
	require.ErrorIs(t, err, ErrInvalidSeeds)

	_, ok := b.Account(target)
	require.False(t, ok)
}

func TestCreateAccountAlreadyInUse(t *testing.T) {
	b := newBank(t)
	payer, target := newKey(), newKey()
	b.FundSystemAccount(payer, 10_000)
	b.FundSystemAccount(target, 1)

	_, err := run(t, b, newKey(), func(ctx *InvokeContext, accs []*AccountInfo, _ []byte) error {
		return ctx.CreateAccount(accs[0], accs[1], 1, 1, ctx.ProgramID())
	},
		types.Meta(payer, true, true),
		types.Meta(target, true, true),
	)
	require.ErrorIs(t, err, ErrAccountAlreadyInUse)
}

func TestCreateAccountInsufficientFunds(t *testing.T) {
	b := newBank(t)
	payer, target := newKey(), newKey()
	b.FundSystemAccount(payer, 10)

	_, err := run(t, b, newKey(), func(ctx *InvokeContext, accs []*AccountInfo, _ []byte) error {
		return ctx.CreateAccount(accs[0], accs[1], 11, 0, ctx.ProgramID())
	},
		types.Meta(payer, true, true),
		types.Meta(target, true, true),
	)
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestMintToAndBurn(t *testing.T) {
	b := newBank(t)
	f := setupTokens(b, 0)

	_, err := run(t, b, newKey(), func(ctx *InvokeContext, accs []*AccountInfo, _ []byte) error {
		if err := ctx.MintTo(accs[1], accs[2], accs[0], 500); err != nil {
			return err
		}
		return ctx.Burn(accs[1], accs[2], accs[0], 200)
	},
		types.Meta(f.owner, true, false),
		types.Meta(f.mint, false, true),
		types.Meta(f.a, false, true),
	)
	require.NoError(t, err)

	supply, err := b.MintSupply(f.mint)
	require.NoError(t, err)
	require.Equal(t, uint64(300), supply)
	bal, err := b.TokenBalance(f.a)
	require.NoError(t, err)
	require.Equal(t, uint64(300), bal)
}

func TestMintToWrongAuthority(t *testing.T) {
	b := newBank(t)
	f := setupTokens(b, 0)
	impostor := newKey()

	_, err := run(t, b, newKey(), func(ctx *InvokeContext, accs []*AccountInfo, _ []byte) error {
		return ctx.MintTo(accs[1], accs[2], accs[0], 1)
	},
		types.Meta(impostor, true, false),
		types.Meta(f.mint, false, true),
		types.Meta(f.a, false, true),
	)
	require.ErrorIs(t, err, ErrOwnerMismatch)
}

func TestBorrowArbitration(t *testing.T) {
	key := newKey()
	info := NewAccountInfo(key, false, true, &types.Account{Data: make([]byte, 4)})

	shared1, err := info.Borrow()
	require.NoError(t, err)
	shared2, err := info.Borrow()
	require.NoError(t, err)

	_, err = info.BorrowMut()
	require.ErrorIs(t, err, ErrAccountBorrowFailed)

	shared1.Release()
	shared2.Release()
	shared2.Release()

	mut, err := info.BorrowMut()
	require.NoError(t, err)
	_, err = info.Borrow()
	require.ErrorIs(t, err, ErrAccountBorrowFailed)
	mut.Release()

	readonly := NewAccountInfo(key, false, false, &types.Account{})
	_, err = readonly.BorrowMut()
	require.ErrorIs(t, err, ErrAccountNotWritable)
}

func TestDuplicateMetasShareCapabilities(t *testing.T) {
	b := newBank(t)
	key := newKey()
	b.SetAccount(key, &types.Account{Data: make([]byte, 8), Owner: newKey()})

	_, err := run(t, b, newKey(), func(ctx *InvokeContext, accs []*AccountInfo, _ []byte) error {
		ref, err := accs[0].BorrowMut()
		if err != nil {
			return err
		}
		defer ref.Release()
		_, err = accs[1].Borrow()
		return err
	},
		types.Meta(key, false, true),
		types.Meta(key, false, false),
	)
	require.ErrorIs(t, err, ErrAccountBorrowFailed)
}

func TestOverlappingExclusive(t *testing.T) {
	a, c := newKey(), newKey()
	grants := []Grant{
		{Account: a, Holder: "p", Exclusive: true, Acquired: 1, Released: 3},
		{Account: a, Holder: "q", Exclusive: true, Acquired: 3, Released: 5},
		{Account: c, Holder: "p", Exclusive: false, Acquired: 1, Released: 6},
		{Account: c, Holder: "q", Exclusive: false, Acquired: 2, Released: 4},
	}
	require.Empty(t, OverlappingExclusive(grants))

	grants = append(grants, Grant{Account: c, Holder: "r", Exclusive: true, Acquired: 5, Released: 7})
	require.Equal(t, []types.Pubkey{c}, OverlappingExclusive(grants))
}

func TestMissingAccountsArePurged(t *testing.T) {
	b := newBank(t)
	ghost := newKey()

	_, err := run(t, b, newKey(), func(*InvokeContext, []*AccountInfo, []byte) error { return nil },
		types.Meta(ghost, false, false),
	)
	require.NoError(t, err)
	_, ok := b.Account(ghost)
	require.False(t, ok)
}

func TestClock(t *testing.T) {
	b := newBank(t)
	b.AdvanceClock(30)
	require.Equal(t, Clock{Slot: 2, UnixTimestamp: 1_700_000_030}, b.Clock())
	b.SetClock(5)
	require.Equal(t, int64(5), b.Clock().UnixTimestamp)
}
