package runtime

import (
	"fmt"

	"github.com/lugondev/go-amm/internal/authority"
	"github.com/lugondev/go-amm/pkg/types"
	"github.com/lugondev/go-amm/pkg/view"
)

func requireTokenOwned(infos ...*AccountInfo) error {
	for _, info := range infos {
		if !info.Owner().Equals(types.TokenProgramID) {
			return fmt.Errorf("%w: %s not owned by token program", ErrInvalidAccountOwner, info.Key())
		}
	}
	return nil
}

func tokenAccount(ref *RefMut) (*view.TokenAccountView, error) {
	v, err := view.NewTokenAccountView(ref.Data())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccountData, err)
	}
	switch v.State() {
	case view.TokenStateInitialized:
		return v, nil
	case view.TokenStateFrozen:
		return nil, ErrAccountFrozen
	default:
		return nil, ErrUninitialized
	}
}

func mintAccount(ref *RefMut) (*view.MintView, error) {
	v, err := view.NewMintView(ref.Data())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccountData, err)
	}
	if !v.IsInitialized() {
		return nil, ErrUninitialized
	}
	return v, nil
}

// InitializeMint initializes a token-owned, rent-exempt account as a mint.
func (c *InvokeContext) InitializeMint(mint *AccountInfo, decimals uint8, mintAuthority types.Pubkey, freezeAuthority *types.Pubkey) error {
	defer c.cpi(types.TokenProgramID)()

	if err := requireTokenOwned(mint); err != nil {
		return err
	}
	ref, err := mint.BorrowMut()
	if err != nil {
		return err
	}
	defer ref.Release()

	v, err := view.NewMintView(ref.Data())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAccountData, err)
	}
	if v.IsInitialized() {
		return fmt.Errorf("%w: mint %s", ErrAlreadyInitialized, mint.Key())
	}
	if !c.bank.rent.IsExempt(mint.Lamports(), view.MintLen) {
		return fmt.Errorf("%w: mint %s", ErrNotRentExempt, mint.Key())
	}

	v.Initialize(decimals, mintAuthority, freezeAuthority)
	return nil
}

// Transfer moves amount tokens from from to to. authority must own from.
func (c *InvokeContext) Transfer(from, to, auth *AccountInfo, amount uint64, signers ...authority.Signer) error {
	defer c.cpi(types.TokenProgramID)()

	if err := requireTokenOwned(from, to); err != nil {
		return err
	}
	if !c.authorized(auth.Key(), signers) {
		return fmt.Errorf("%w: transfer authority %s", ErrMissingSignature, auth.Key())
	}

	fromRef, err := from.BorrowMut()
	if err != nil {
		return err
	}
	defer fromRef.Release()

	src, err := tokenAccount(fromRef)
	if err != nil {
		return err
	}
	if !src.Owner().Equals(auth.Key()) {
		return fmt.Errorf("%w: %s does not own %s", ErrOwnerMismatch, auth.Key(), from.Key())
	}
	if src.Amount() < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientFunds, from.Key(), src.Amount(), amount)
	}

	if from.Key().Equals(to.Key()) {
		return nil
	}

	toRef, err := to.BorrowMut()
	if err != nil {
		return err
	}
	defer toRef.Release()

	dst, err := tokenAccount(toRef)
	if err != nil {
		return err
	}
	if !src.Mint().Equals(dst.Mint()) {
		return fmt.Errorf("%w: %s", ErrMintMismatch, to.Key())
	}
	if dst.Amount()+amount < dst.Amount() {
		return ErrOverflow
	}

	src.SetAmount(src.Amount() - amount)
	dst.SetAmount(dst.Amount() + amount)
	return nil
}

// MintTo issues amount new tokens of mint into to. authority must be the mint authority.
func (c *InvokeContext) MintTo(mint, to, auth *AccountInfo, amount uint64, signers ...authority.Signer) error {
	defer c.cpi(types.TokenProgramID)()

	if err := requireTokenOwned(mint, to); err != nil {
		return err
	}
	if !c.authorized(auth.Key(), signers) {
		return fmt.Errorf("%w: mint authority %s", ErrMissingSignature, auth.Key())
	}

	mintRef, err := mint.BorrowMut()
	if err != nil {
		return err
	}
	defer mintRef.Release()

	m, err := mintAccount(mintRef)
	if err != nil {
		return err
	}
	if current, ok := m.MintAuthority(); !ok || !current.Equals(auth.Key()) {
		return fmt.Errorf("%w: %s is not the mint authority of %s", ErrOwnerMismatch, auth.Key(), mint.Key())
	}

	toRef, err := to.BorrowMut()
	if err != nil {
		return err
	}
	defer toRef.Release()

	dst, err := tokenAccount(toRef)
	if err != nil {
		return err
	}
	if !dst.Mint().Equals(mint.Key()) {
		return fmt.Errorf("%w: %s", ErrMintMismatch, to.Key())
	}
	if m.Supply()+amount < m.Supply() || dst.Amount()+amount < dst.Amount() {
		return ErrOverflow
	}

	m.SetSupply(m.Supply() + amount)
	dst.SetAmount(dst.Amount() + amount)
	return nil
}

// Burn destroys amount tokens held in from. authority must own from.
func (c *InvokeContext) Burn(mint, from, auth *AccountInfo, amount uint64, signers ...authority.Signer) error {
	defer c.cpi(types.TokenProgramID)()

	if err := requireTokenOwned(mint, from); err != nil {
		return err
	}
	if !c.authorized(auth.Key(), signers) {
		return fmt.Errorf("%w: burn authority %s", ErrMissingSignature, auth.Key())
	}

	fromRef, err := from.BorrowMut()
	if err != nil {
		return err
	}
	defer fromRef.Release()

	src, err := tokenAccount(fromRef)
	if err != nil {
		return err
	}
	if !src.Mint().Equals(mint.Key()) {
		return fmt.Errorf("%w: %s", ErrMintMismatch, from.Key())
	}
	if !src.Owner().Equals(auth.Key()) {
		return fmt.Errorf("%w: %s does not own %s", ErrOwnerMismatch, auth.Key(), from.Key())
	}
	if src.Amount() < amount {
		return fmt.Errorf("%w: %s holds %d, burning %d", ErrInsufficientFunds, from.Key(), src.Amount(), amount)
	}

	mintRef, err := mint.BorrowMut()
	if err != nil {
		return err
	}
	defer mintRef.Release()

	m, err := mintAccount(mintRef)
	if err != nil {
		return err
	}
	if m.Supply() < amount {
		return ErrOverflow
	}

	src.SetAmount(src.Amount() - amount)
	m.SetSupply(m.Supply() - amount)
	return nil
}
