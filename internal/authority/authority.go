// Package authority derives the program-owned addresses of a pool and the seed
// tuples that authorize the program to act for them.
//
// The pool record address doubles as the pool authority: it owns the vaults and
// is the LP mint authority. Its seed tuple is ("config", seed LE, mint_x,
// mint_y, [bump]). The LP mint lives at ("mint_lp", pool, [bump]). Each vault
// is the associated token account of the pool for its mint.
//
// Derivation is a pure function of the seeds and the program id. Verifying that
// a seed tuple really produces a given signer is the host runtime's job.
package authority

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lugondev/go-amm/pkg/types"
)

// Seed prefixes.
const (
	PoolSeedPrefix   = "config"
	LPMintSeedPrefix = "mint_lp"
)

// DefaultCacheSize bounds the derivation cache of a Deriver.
const DefaultCacheSize = 1024

// Signer is an ordered seed tuple, bump included, that derives a program address.
type Signer [][]byte

// PoolSigner returns the pool authority seed tuple.
func PoolSigner(seed uint64, mintX, mintY types.Pubkey, bump uint8) Signer {
	return Signer{
		[]byte(PoolSeedPrefix),
		seedBytes(seed),
		mintX.Bytes(),
		mintY.Bytes(),
		{bump},
	}
}

// LPMintSigner returns the LP mint seed tuple.
func LPMintSigner(pool types.Pubkey, bump uint8) Signer {
	return Signer{
		[]byte(LPMintSeedPrefix),
		pool.Bytes(),
		{bump},
	}
}

// Derive computes the address produced by the seed tuple under programID.
func Derive(seeds Signer, programID types.Pubkey) (types.Pubkey, error) {
	addr, err := solana.CreateProgramAddress(seeds, programID)
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("derive program address: %w", err)
	}
	return addr, nil
}

// FindPoolAddress searches for the canonical pool address and bump.
func FindPoolAddress(programID types.Pubkey, seed uint64, mintX, mintY types.Pubkey) (types.Pubkey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		[]byte(PoolSeedPrefix),
		seedBytes(seed),
		mintX.Bytes(),
		mintY.Bytes(),
	}, programID)
}

// FindLPMintAddress searches for the canonical LP mint address and bump.
func FindLPMintAddress(programID, pool types.Pubkey) (types.Pubkey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		[]byte(LPMintSeedPrefix),
		pool.Bytes(),
	}, programID)
}

// FindVaultAddress returns the vault of pool for mint: the pool's associated
// token account.
func FindVaultAddress(pool, mint types.Pubkey) (types.Pubkey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(pool, mint)
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("derive vault address: %w", err)
	}
	return addr, nil
}

func seedBytes(seed uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, seed)
	return b
}

// Deriver memoizes derivations. Seeds that fail to derive are not cached.
type Deriver struct {
	cache *lru.Cache[string, types.Pubkey]
}

// NewDeriver creates a Deriver holding at most size derivations.
func NewDeriver(size int) (*Deriver, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, types.Pubkey](size)
	if err != nil {
		return nil, fmt.Errorf("create derivation cache: %w", err)
	}
	return &Deriver{cache: cache}, nil
}

// Derive is the cached form of the package-level Derive.
func (d *Deriver) Derive(seeds Signer, programID types.Pubkey) (types.Pubkey, error) {
	key := cacheKey(seeds, programID)
	if addr, ok := d.cache.Get(key); ok {
		return addr, nil
	}
	addr, err := Derive(seeds, programID)
	if err != nil {
		return types.Pubkey{}, err
	}
	d.cache.Add(key, addr)
	return addr, nil
}

// Len returns the number of cached derivations.
func (d *Deriver) Len() int {
	return d.cache.Len()
}

func cacheKey(seeds Signer, programID types.Pubkey) string {
	var b strings.Builder
	b.WriteString(programID.String())
	for _, s := range seeds {
		b.WriteByte('/')
		b.WriteString(hex.EncodeToString(s))
	}
	return b.String()
}
