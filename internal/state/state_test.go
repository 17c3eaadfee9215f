package state

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	amerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/runtime"
	"github.com/lugondev/go-amm/pkg/types"
)

func sampleConfig() PoolConfig {
	return PoolConfig{
		State:     Initialized,
		Seed:      0xdeadbeef,
		Authority: solana.NewWallet().PublicKey(),
		MintX:     solana.NewWallet().PublicKey(),
		MintY:     solana.NewWallet().PublicKey(),
		FeeBps:    30,
		Bump:      251,
	}
}

func recordInfo(t *testing.T, owner types.Pubkey, cfg PoolConfig, writable bool) *runtime.AccountInfo {
	t.Helper()
	data, err := cfg.Encode()
	require.NoError(t, err)
	return runtime.NewAccountInfo(solana.NewWallet().PublicKey(), false, writable, &types.Account{Data: data, Owner: owner})
}

func TestPoolConfigLayout(t *testing.T) {
	cfg := sampleConfig()
	data, err := cfg.Encode()
	require.NoError(t, err)
	require.Len(t, data, PoolConfigLen)
	require.Equal(t, 108, PoolConfigLen)

	require.Equal(t, byte(Initialized), data[0])
	require.Equal(t, cfg.Seed, binary.LittleEndian.Uint64(data[1:9]))
	require.Equal(t, cfg.Authority.Bytes(), data[9:41])
	require.Equal(t, cfg.MintX.Bytes(), data[41:73])
	require.Equal(t, cfg.MintY.Bytes(), data[73:105])
	require.Equal(t, uint16(30), binary.LittleEndian.Uint16(data[105:107]))
	require.Equal(t, byte(251), data[107])

	decoded, err := DecodePoolConfig(data)
	require.NoError(t, err)
	require.Equal(t, cfg, *decoded)
}

func TestDecodeRejectsInvalidRecords(t *testing.T) {
	cfg := sampleConfig()
	data, err := cfg.Encode()
	require.NoError(t, err)

	badState := append([]byte(nil), data...)
	badState[0] = 4
	badFee := append([]byte(nil), data...)
	binary.LittleEndian.PutUint16(badFee[105:107], MaxFeeBps)

	for name, buf := range map[string][]byte{
		"short":     data[:PoolConfigLen-1],
		"long":      append(append([]byte(nil), data...), 0),
		"bad state": badState,
		"bad fee":   badFee,
	} {
		_, err := DecodePoolConfig(buf)
		require.ErrorIs(t, err, amerrors.ErrInvalidRecordState, name)
	}
}

func TestHasAuthority(t *testing.T) {
	cfg := sampleConfig()
	got, ok := cfg.HasAuthority()
	require.True(t, ok)
	require.Equal(t, cfg.Authority, got)

	cfg.Authority = types.Pubkey{}
	_, ok = cfg.HasAuthority()
	require.False(t, ok)
}

func TestLoadChecks(t *testing.T) {
	programID := solana.NewWallet().PublicKey()

	pool, err := Load(recordInfo(t, programID, sampleConfig(), false), programID)
	require.NoError(t, err)
	require.Equal(t, Initialized, pool.State)
	pool.Release()

	_, err = Load(recordInfo(t, solana.NewWallet().PublicKey(), sampleConfig(), false), programID)
	require.ErrorIs(t, err, amerrors.ErrInvalidAccountOwnership)

	short := runtime.NewAccountInfo(solana.NewWallet().PublicKey(), false, false,
		&types.Account{Data: make([]byte, PoolConfigLen-1), Owner: programID})
	_, err = Load(short, programID)
	require.ErrorIs(t, err, amerrors.ErrInvalidRecordState)

	_, err = LoadMut(recordInfo(t, solana.NewWallet().PublicKey(), sampleConfig(), true), programID)
	require.ErrorIs(t, err, amerrors.ErrInvalidAccountOwnership)
}

func TestLoadHoldsCapability(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	info := recordInfo(t, programID, sampleConfig(), true)

	pool, err := Load(info, programID)
	require.NoError(t, err)

	_, err = LoadMut(info, programID)
	require.True(t, errors.Is(err, runtime.ErrAccountBorrowFailed))
	require.Equal(t, amerrors.ErrCodeInvalidRecordState, amerrors.CodeOf(err))

	pool.Release()
	mut, err := LoadMut(info, programID)
	require.NoError(t, err)
	mut.Release()
}

func TestLoadMutUncheckedSkipsOwner(t *testing.T) {
	info := runtime.NewAccountInfo(solana.NewWallet().PublicKey(), false, true,
		&types.Account{Data: make([]byte, PoolConfigLen), Owner: types.SystemProgramID})

	mut, err := LoadMutUnchecked(info)
	require.NoError(t, err)
	require.Equal(t, Uninitialized, mut.Config().State)
	mut.Release()

	wrongLen := runtime.NewAccountInfo(solana.NewWallet().PublicKey(), false, true,
		&types.Account{Data: make([]byte, 10)})
	_, err = LoadMutUnchecked(wrongLen)
	require.ErrorIs(t, err, amerrors.ErrInvalidRecordState)
}

func TestSetters(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	acc := &types.Account{Data: make([]byte, PoolConfigLen), Owner: programID}
	info := runtime.NewAccountInfo(solana.NewWallet().PublicKey(), false, true, acc)

	mut, err := LoadMutUnchecked(info)
	require.NoError(t, err)

	want := sampleConfig()
	require.NoError(t, mut.SetInner(want.Seed, want.Authority, want.MintX, want.MintY, want.FeeBps, want.Bump))
	decoded, err := DecodePoolConfig(acc.Data)
	require.NoError(t, err)
	require.Equal(t, want, *decoded)

	for _, fee := range []uint16{0, 1, 9999} {
		require.NoError(t, mut.SetFee(fee))
		require.Equal(t, fee, mut.Config().FeeBps)
	}
	for _, fee := range []uint16{10000, 10001, 65535} {
		require.ErrorIs(t, mut.SetFee(fee), amerrors.ErrInvalidRecordState)
		require.Equal(t, uint16(9999), mut.Config().FeeBps)
	}

	for s := Uninitialized; s <= WithdrawOnly; s++ {
		require.NoError(t, mut.SetState(s))
		require.Equal(t, byte(s), acc.Data[0])
	}
	require.ErrorIs(t, mut.SetState(WithdrawOnly+1), amerrors.ErrInvalidRecordState)
	require.Equal(t, byte(WithdrawOnly), acc.Data[0])

	require.NoError(t, mut.SetAuthority(types.Pubkey{}))
	cfg := mut.Config()
	_, ok := cfg.HasAuthority()
	require.False(t, ok)
	mut.Release()
}

func TestSetInnerRejectsFeeWithoutWriting(t *testing.T) {
	acc := &types.Account{Data: make([]byte, PoolConfigLen)}
	info := runtime.NewAccountInfo(solana.NewWallet().PublicKey(), false, true, acc)

	mut, err := LoadMutUnchecked(info)
	require.NoError(t, err)
	defer mut.Release()

	cfg := sampleConfig()
	err = mut.SetInner(cfg.Seed, cfg.Authority, cfg.MintX, cfg.MintY, MaxFeeBps, cfg.Bump)
	require.ErrorIs(t, err, amerrors.ErrInvalidRecordState)
	require.Equal(t, make([]byte, PoolConfigLen), acc.Data)
}

func TestParseLifecycleState(t *testing.T) {
	for s := Uninitialized; s <= WithdrawOnly; s++ {
		got, err := ParseLifecycleState(s.String())
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
	_, err := ParseLifecycleState("paused")
	require.Error(t, err)
}
