package authority

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestPoolSignerDerivesCanonicalAddress(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	mintX := solana.NewWallet().PublicKey()
	mintY := solana.NewWallet().PublicKey()

	pool, bump, err := FindPoolAddress(programID, 42, mintX, mintY)
	require.NoError(t, err)

	got, err := Derive(PoolSigner(42, mintX, mintY, bump), programID)
	require.NoError(t, err)
	require.Equal(t, pool, got)

	lp, lpBump, err := FindLPMintAddress(programID, pool)
	require.NoError(t, err)

	got, err = Derive(LPMintSigner(pool, lpBump), programID)
	require.NoError(t, err)
	require.Equal(t, lp, got)
}

func TestDeriveIsPure(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	mintX := solana.NewWallet().PublicKey()
	mintY := solana.NewWallet().PublicKey()

	_, bump, err := FindPoolAddress(programID, 7, mintX, mintY)
	require.NoError(t, err)

	a, err := Derive(PoolSigner(7, mintX, mintY, bump), programID)
	require.NoError(t, err)
	b, err := Derive(PoolSigner(7, mintX, mintY, bump), programID)
	require.NoError(t, err)
	require.Equal(t, a, b)

	other, _, err := FindPoolAddress(programID, 8, mintX, mintY)
	require.NoError(t, err)
	require.NotEqual(t, a, other)

	otherProgram, _, err := FindPoolAddress(solana.NewWallet().PublicKey(), 7, mintX, mintY)
	require.NoError(t, err)
	require.NotEqual(t, a, otherProgram)
}

func TestPoolSignerLayout(t *testing.T) {
	mintX := solana.NewWallet().PublicKey()
	mintY := solana.NewWallet().PublicKey()
	s := PoolSigner(0x0102, mintX, mintY, 254)

	require.Len(t, s, 5)
	require.Equal(t, []byte("config"), s[0])
	require.Equal(t, []byte{0x02, 0x01, 0, 0, 0, 0, 0, 0}, s[1])
	require.Equal(t, mintX.Bytes(), s[2])
	require.Equal(t, mintY.Bytes(), s[3])
	require.Equal(t, []byte{254}, s[4])
}

func TestDeriverCaches(t *testing.T) {
	d, err := NewDeriver(0)
	require.NoError(t, err)

	programID := solana.NewWallet().PublicKey()
	pool := solana.NewWallet().PublicKey()
	_, bump, err := FindLPMintAddress(programID, pool)
	require.NoError(t, err)

	first, err := d.Derive(LPMintSigner(pool, bump), programID)
	require.NoError(t, err)
	require.Equal(t, 1, d.Len())

	second, err := d.Derive(LPMintSigner(pool, bump), programID)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, d.Len())
}

func TestFindVaultAddress(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	mintX, mintY := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	pool, _, err := FindPoolAddress(programID, 7, mintX, mintY)
	require.NoError(t, err)

	vaultX, err := FindVaultAddress(pool, mintX)
	require.NoError(t, err)
	ata, _, err := solana.FindAssociatedTokenAddress(pool, mintX)
	require.NoError(t, err)
	require.Equal(t, ata, vaultX)

	vaultY, err := FindVaultAddress(pool, mintY)
	require.NoError(t, err)
	require.NotEqual(t, vaultX, vaultY)
}
