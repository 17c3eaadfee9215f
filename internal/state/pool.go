// Package state holds the pool record and the guarded ways of reaching it.
//
// The record is 108 packed little-endian bytes:
//
//	state u8 | seed u64 | authority [32] | mint_x [32] | mint_y [32] | fee_bps u16 | bump u8
//
// It is encoded and decoded field by field; account bytes are never
// reinterpreted in place.
package state

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-amm/internal/authority"
	amerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/pkg/types"
)

// PoolConfigLen is the exact byte length of a pool record.
const PoolConfigLen = 1 + 8 + 32 + 32 + 32 + 2 + 1

// MaxFeeBps is the exclusive upper bound of FeeBps.
const MaxFeeBps = 10_000

// LifecycleState gates which operations a pool accepts.
type LifecycleState uint8

const (
	Uninitialized LifecycleState = iota
	Initialized
	Disabled
	WithdrawOnly
)

func (s LifecycleState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Disabled:
		return "disabled"
	case WithdrawOnly:
		return "withdraw_only"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Valid reports whether s is a defined state.
func (s LifecycleState) Valid() bool {
	return s <= WithdrawOnly
}

// ParseLifecycleState parses the String form of a state.
func ParseLifecycleState(name string) (LifecycleState, error) {
	for s := Uninitialized; s <= WithdrawOnly; s++ {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown lifecycle state %q", name)
}

// PoolConfig is the decoded pool record.
type PoolConfig struct {
	// State gates the operations the pool accepts.
	State LifecycleState

	// Seed distinguishes pools over the same mint pair.
	Seed uint64

	// Authority is zero when the pool has no admin.
	Authority types.Pubkey

	// MintX and MintY are the mints of the two reserves.
	MintX types.Pubkey
	MintY types.Pubkey

	// FeeBps is the swap fee in basis points, below MaxFeeBps.
	FeeBps uint16

	// Bump completes the pool authority seed tuple.
	Bump uint8
}

// HasAuthority returns the admin authority, if one is set.
func (c *PoolConfig) HasAuthority() (types.Pubkey, bool) {
	if c.Authority.IsZero() {
		return types.Pubkey{}, false
	}
	return c.Authority, true
}

// Signer returns the seed tuple that lets the program sign as the pool authority.
func (c *PoolConfig) Signer() authority.Signer {
	return authority.PoolSigner(c.Seed, c.MintX, c.MintY, c.Bump)
}

// Validate checks the bounds every stored record satisfies.
func (c *PoolConfig) Validate() error {
	if !c.State.Valid() {
		return amerrors.InvalidRecordState(fmt.Sprintf("lifecycle state %d out of range", uint8(c.State)))
	}
	if c.FeeBps >= MaxFeeBps {
		return amerrors.InvalidRecordState(fmt.Sprintf("fee %d bps must be below %d", c.FeeBps, MaxFeeBps))
	}
	return nil
}

func (c *PoolConfig) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint8(uint8(c.State)); err != nil {
		return err
	}
	if err := encoder.WriteUint64(c.Seed, bin.LE); err != nil {
		return err
	}
	for _, k := range []types.Pubkey{c.Authority, c.MintX, c.MintY} {
		if err := encoder.WriteBytes(k[:], false); err != nil {
			return err
		}
	}
	if err := encoder.WriteUint16(c.FeeBps, bin.LE); err != nil {
		return err
	}
	return encoder.WriteUint8(c.Bump)
}

func (c *PoolConfig) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	state, err := decoder.ReadUint8()
	if err != nil {
		return err
	}
	c.State = LifecycleState(state)
	if c.Seed, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	for _, k := range []*types.Pubkey{&c.Authority, &c.MintX, &c.MintY} {
		b, err := decoder.ReadBytes(solana.PublicKeyLength)
		if err != nil {
			return err
		}
		copy(k[:], b)
	}
	if c.FeeBps, err = decoder.ReadUint16(bin.LE); err != nil {
		return err
	}
	c.Bump, err = decoder.ReadUint8()
	return err
}

// Encode returns the record bytes.
func (c *PoolConfig) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(PoolConfigLen)
	if err := c.MarshalWithEncoder(bin.NewBinEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodePoolConfig decodes and validates a record.
func DecodePoolConfig(data []byte) (*PoolConfig, error) {
	c, err := decodeRaw(data)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func decodeRaw(data []byte) (*PoolConfig, error) {
	if len(data) != PoolConfigLen {
		return nil, amerrors.InvalidRecordState(fmt.Sprintf("pool record must be %d bytes, got %d", PoolConfigLen, len(data)))
	}
	c := new(PoolConfig)
	if err := c.UnmarshalWithDecoder(bin.NewBinDecoder(data)); err != nil {
		return nil, amerrors.InvalidRecordState("decode pool record").WithCause(err)
	}
	return c, nil
}
