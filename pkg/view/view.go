package view

import (
	"encoding/binary"
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrInvalidBuffer      = errors.New("invalid buffer size")
	ErrInvalidAccountData = errors.New("invalid account data")
)

// SPL token layouts.
const (
	MintLen         = 82
	TokenAccountLen = 165
)

const (
	mintAuthorityOpt   = 0
	mintAuthority      = 4
	mintSupply         = 36
	mintDecimals       = 44
	mintIsInitialized  = 45
	mintFreezeOpt      = 46
	mintFreezeAuthAddr = 50

	tokenMint            = 0
	tokenOwner           = 32
	tokenAmount          = 64
	tokenDelegateOpt     = 72
	tokenState           = 108
	tokenIsNativeOpt     = 109
	tokenDelegatedAmount = 121
	tokenCloseAuthOpt    = 129
)

// TokenState is the state byte of an SPL token account.
type TokenState uint8

const (
	TokenStateUninitialized TokenState = iota
	TokenStateInitialized
	TokenStateFrozen
)

func readKey(buf []byte, off int) solana.PublicKey {
	var k solana.PublicKey
	copy(k[:], buf[off:off+32])
	return k
}

func readOptionKey(buf []byte, tag, off int) (solana.PublicKey, bool) {
	if binary.LittleEndian.Uint32(buf[tag:tag+4]) == 0 {
		return solana.PublicKey{}, false
	}
	return readKey(buf, off), true
}

func writeOptionKey(buf []byte, tag, off int, key *solana.PublicKey) {
	if key == nil {
		binary.LittleEndian.PutUint32(buf[tag:tag+4], 0)
		clear(buf[off : off+32])
		return
	}
	binary.LittleEndian.PutUint32(buf[tag:tag+4], 1)
	copy(buf[off:off+32], key[:])
}

type MintView struct {
	buffer []byte
}

func NewMintView(buffer []byte) (*MintView, error) {
	if len(buffer) != MintLen {
		return nil, ErrInvalidBuffer
	}
	return &MintView{buffer: buffer}, nil
}

func (v *MintView) MintAuthority() (solana.PublicKey, bool) {
	return readOptionKey(v.buffer, mintAuthorityOpt, mintAuthority)
}

func (v *MintView) Supply() uint64 {
	return binary.LittleEndian.Uint64(v.buffer[mintSupply : mintSupply+8])
}

func (v *MintView) Decimals() uint8 {
	return v.buffer[mintDecimals]
}

func (v *MintView) IsInitialized() bool {
	return v.buffer[mintIsInitialized] != 0
}

func (v *MintView) FreezeAuthority() (solana.PublicKey, bool) {
	return readOptionKey(v.buffer, mintFreezeOpt, mintFreezeAuthAddr)
}

// Initialize writes a fresh mint. The view must wrap writable account data.
func (v *MintView) Initialize(decimals uint8, authority solana.PublicKey, freeze *solana.PublicKey) {
	writeOptionKey(v.buffer, mintAuthorityOpt, mintAuthority, &authority)
	v.SetSupply(0)
	v.buffer[mintDecimals] = decimals
	v.buffer[mintIsInitialized] = 1
	writeOptionKey(v.buffer, mintFreezeOpt, mintFreezeAuthAddr, freeze)
}

func (v *MintView) SetSupply(supply uint64) {
	binary.LittleEndian.PutUint64(v.buffer[mintSupply:mintSupply+8], supply)
}

type TokenAccountView struct {
	buffer []byte
}

func NewTokenAccountView(buffer []byte) (*TokenAccountView, error) {
	if len(buffer) != TokenAccountLen {
		return nil, ErrInvalidBuffer
	}
	return &TokenAccountView{buffer: buffer}, nil
}

func (v *TokenAccountView) Mint() solana.PublicKey {
	return readKey(v.buffer, tokenMint)
}

func (v *TokenAccountView) Owner() solana.PublicKey {
	return readKey(v.buffer, tokenOwner)
}

func (v *TokenAccountView) Amount() uint64 {
	return binary.LittleEndian.Uint64(v.buffer[tokenAmount : tokenAmount+8])
}

func (v *TokenAccountView) Delegate() (solana.PublicKey, bool) {
	return readOptionKey(v.buffer, tokenDelegateOpt, tokenDelegateOpt+4)
}

func (v *TokenAccountView) State() TokenState {
	return TokenState(v.buffer[tokenState])
}

func (v *TokenAccountView) IsNative() bool {
	return binary.LittleEndian.Uint32(v.buffer[tokenIsNativeOpt:tokenIsNativeOpt+4]) != 0
}

func (v *TokenAccountView) DelegatedAmount() uint64 {
	return binary.LittleEndian.Uint64(v.buffer[tokenDelegatedAmount : tokenDelegatedAmount+8])
}

func (v *TokenAccountView) CloseAuthority() (solana.PublicKey, bool) {
	return readOptionKey(v.buffer, tokenCloseAuthOpt, tokenCloseAuthOpt+4)
}

// Initialize writes an initialized, non-native token account with no delegate.
func (v *TokenAccountView) Initialize(mint, owner solana.PublicKey, amount uint64) {
	clear(v.buffer)
	copy(v.buffer[tokenMint:tokenMint+32], mint[:])
	copy(v.buffer[tokenOwner:tokenOwner+32], owner[:])
	v.SetAmount(amount)
	v.buffer[tokenState] = byte(TokenStateInitialized)
}

func (v *TokenAccountView) SetAmount(amount uint64) {
	binary.LittleEndian.PutUint64(v.buffer[tokenAmount:tokenAmount+8], amount)
}

func (v *TokenAccountView) SetState(state TokenState) {
	v.buffer[tokenState] = byte(state)
}

// NewTokenAccountData allocates initialized token account data.
func NewTokenAccountData(mint, owner solana.PublicKey, amount uint64) []byte {
	buf := make([]byte, TokenAccountLen)
	v := &TokenAccountView{buffer: buf}
	v.Initialize(mint, owner, amount)
	return buf
}

// NewMintData allocates initialized mint data with the given supply.
func NewMintData(decimals uint8, authority solana.PublicKey, supply uint64) []byte {
	buf := make([]byte, MintLen)
	v := &MintView{buffer: buf}
	v.Initialize(decimals, authority, nil)
	v.SetSupply(supply)
	return buf
}
