package view

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func createTestTokenAccountBuffer() []byte {
	// Layout: mint(32) + owner(32) + amount(8) + delegate(36) + state(1) +
	// is_native(12) + delegated_amount(8) + close_authority(36) = 165 bytes
	buf := make([]byte, TokenAccountLen)

	mint := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	copy(buf[0:32], mint[:])

	owner := solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	copy(buf[32:64], owner[:])

	binary.LittleEndian.PutUint64(buf[64:72], 1000000000)

	buf[108] = 1

	binary.LittleEndian.PutUint64(buf[121:129], 42)

	return buf
}

func TestTokenAccountView(t *testing.T) {
	buf := createTestTokenAccountBuffer()
	view, err := NewTokenAccountView(buf)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expectedMint := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	if !view.Mint().Equals(expectedMint) {
		t.Errorf("Expected mint %s, got %s", expectedMint, view.Mint())
	}

	expectedOwner := solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	if !view.Owner().Equals(expectedOwner) {
		t.Errorf("Expected owner %s, got %s", expectedOwner, view.Owner())
	}

	if view.Amount() != 1000000000 {
		t.Errorf("Expected amount 1000000000, got %d", view.Amount())
	}

	if view.State() != TokenStateInitialized {
		t.Errorf("Expected initialized state, got %d", view.State())
	}

	if _, ok := view.Delegate(); ok {
		t.Error("Expected no delegate")
	}

	if view.IsNative() {
		t.Error("Expected non-native account")
	}

	if view.DelegatedAmount() != 42 {
		t.Errorf("Expected delegated amount 42, got %d", view.DelegatedAmount())
	}

	view.SetAmount(7)
	if binary.LittleEndian.Uint64(buf[64:72]) != 7 {
		t.Error("SetAmount did not write through to the buffer")
	}
}

func TestTokenAccountViewInvalidBuffer(t *testing.T) {
	if _, err := NewTokenAccountView(make([]byte, TokenAccountLen-1)); err != ErrInvalidBuffer {
		t.Errorf("Expected ErrInvalidBuffer, got %v", err)
	}
	if _, err := NewTokenAccountView(make([]byte, TokenAccountLen+1)); err != ErrInvalidBuffer {
		t.Errorf("Expected ErrInvalidBuffer, got %v", err)
	}
}

func TestMintView(t *testing.T) {
	authority := solana.NewWallet().PublicKey()
	buf := NewMintData(6, authority, 500)

	view, err := NewMintView(buf)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got, ok := view.MintAuthority()
	if !ok || !got.Equals(authority) {
		t.Errorf("Expected mint authority %s, got %s (set=%v)", authority, got, ok)
	}

	if view.Supply() != 500 {
		t.Errorf("Expected supply 500, got %d", view.Supply())
	}

	if view.Decimals() != 6 {
		t.Errorf("Expected decimals 6, got %d", view.Decimals())
	}

	if !view.IsInitialized() {
		t.Error("Expected mint to be initialized")
	}

	if _, ok := view.FreezeAuthority(); ok {
		t.Error("Expected no freeze authority")
	}

	freeze := solana.NewWallet().PublicKey()
	view.Initialize(9, authority, &freeze)
	if f, ok := view.FreezeAuthority(); !ok || !f.Equals(freeze) {
		t.Errorf("Expected freeze authority %s", freeze)
	}
	if view.Supply() != 0 {
		t.Errorf("Expected supply reset to 0, got %d", view.Supply())
	}
}

func TestMintViewInvalidBuffer(t *testing.T) {
	if _, err := NewMintView(make([]byte, 10)); err != ErrInvalidBuffer {
		t.Errorf("Expected ErrInvalidBuffer, got %v", err)
	}
}

func TestNewTokenAccountData(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()
	buf := NewTokenAccountData(mint, owner, 99)

	view, err := NewTokenAccountView(buf)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !view.Mint().Equals(mint) || !view.Owner().Equals(owner) || view.Amount() != 99 {
		t.Errorf("Unexpected token account %s %s %d", view.Mint(), view.Owner(), view.Amount())
	}
}
