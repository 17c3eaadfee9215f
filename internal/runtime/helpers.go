package runtime

import (
	"fmt"

	"github.com/lugondev/go-amm/pkg/types"
	"github.com/lugondev/go-amm/pkg/view"
)

// FundSystemAccount stores a system account holding lamports.
func (b *Bank) FundSystemAccount(key types.Pubkey, lamports uint64) {
	b.SetAccount(key, types.NewSystemAccount(lamports))
}

// SetMint stores a rent-exempt, initialized mint.
func (b *Bank) SetMint(key types.Pubkey, decimals uint8, authority types.Pubkey, supply uint64) {
	b.SetAccount(key, &types.Account{
		Lamports: b.rent.MinimumBalance(view.MintLen),
		Data:     view.NewMintData(decimals, authority, supply),
		Owner:    types.TokenProgramID,
	})
}

// SetTokenAccount stores a rent-exempt, initialized token account.
func (b *Bank) SetTokenAccount(key, mint, owner types.Pubkey, amount uint64) {
	b.SetAccount(key, &types.Account{
		Lamports: b.rent.MinimumBalance(view.TokenAccountLen),
		Data:     view.NewTokenAccountData(mint, owner, amount),
		Owner:    types.TokenProgramID,
	})
}

// TokenBalance returns the amount held by a token account.
func (b *Bank) TokenBalance(key types.Pubkey) (uint64, error) {
	acc, ok := b.Account(key)
	if !ok {
		return 0, fmt.Errorf("token account %s not found", key)
	}
	v, err := view.NewTokenAccountView(acc.Data)
	if err != nil {
		return 0, fmt.Errorf("token account %s: %w", key, err)
	}
	return v.Amount(), nil
}

// MintSupply returns the supply of a mint.
func (b *Bank) MintSupply(key types.Pubkey) (uint64, error) {
	acc, ok := b.Account(key)
	if !ok {
		return 0, fmt.Errorf("mint %s not found", key)
	}
	v, err := view.NewMintView(acc.Data)
	if err != nil {
		return 0, fmt.Errorf("mint %s: %w", key, err)
	}
	return v.Supply(), nil
}
