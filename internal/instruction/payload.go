package instruction

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	amerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/pkg/types"
)

// Payload lengths, excluding the opcode byte.
const (
	InitializeLongLen  = 8 + 2 + 32 + 32 + 1 + 1 + 32
	InitializeShortLen = InitializeLongLen - 32
	DepositLen         = 8 + 8 + 8 + 8
	WithdrawLen        = 8 + 8 + 8 + 8
	SwapLen            = 1 + 8 + 8 + 8
)

// InitializeForm tells which of the two Initialize encodings was used.
type InitializeForm uint8

const (
	// FormLong carries an explicit admin authority.
	FormLong InitializeForm = iota
	// FormShort omits the authority, leaving the pool without one.
	FormShort
)

// InitializeArgs creates a pool.
type InitializeArgs struct {
	Seed       uint64
	FeeBps     uint16
	MintX      types.Pubkey
	MintY      types.Pubkey
	ConfigBump uint8
	LPBump     uint8
	// Authority is zero when the pool has no admin.
	Authority types.Pubkey
}

func (a *InitializeArgs) Opcode() Opcode { return OpInitialize }

// Form returns the shortest encoding able to carry a.
func (a *InitializeArgs) Form() InitializeForm {
	if a.Authority.IsZero() {
		return FormShort
	}
	return FormLong
}

// MarshalWithEncoder always writes the long form.
func (a *InitializeArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := a.marshalCommon(encoder); err != nil {
		return err
	}
	return encoder.WriteBytes(a.Authority[:], false)
}

// EncodeShort writes the short form, which drops the authority.
func (a *InitializeArgs) EncodeShort() ([]byte, error) {
	if !a.Authority.IsZero() {
		return nil, fmt.Errorf("short form cannot carry authority %s", a.Authority)
	}
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)
	if err := encoder.WriteUint8(uint8(OpInitialize)); err != nil {
		return nil, err
	}
	if err := a.marshalCommon(encoder); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (a *InitializeArgs) marshalCommon(encoder *bin.Encoder) error {
	if err := encoder.WriteUint64(a.Seed, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteUint16(a.FeeBps, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteBytes(a.MintX[:], false); err != nil {
		return err
	}
	if err := encoder.WriteBytes(a.MintY[:], false); err != nil {
		return err
	}
	if err := encoder.WriteUint8(a.ConfigBump); err != nil {
		return err
	}
	return encoder.WriteUint8(a.LPBump)
}

func (a *InitializeArgs) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	if a.Seed, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	if a.FeeBps, err = decoder.ReadUint16(bin.LE); err != nil {
		return err
	}
	if a.MintX, err = readKey(decoder); err != nil {
		return err
	}
	if a.MintY, err = readKey(decoder); err != nil {
		return err
	}
	if a.ConfigBump, err = decoder.ReadUint8(); err != nil {
		return err
	}
	if a.LPBump, err = decoder.ReadUint8(); err != nil {
		return err
	}
	a.Authority = types.Pubkey{}
	if decoder.Remaining() == 0 {
		return nil
	}
	a.Authority, err = readKey(decoder)
	return err
}

// DecodeInitialize decodes either Initialize form, selected by payload length.
// A short payload yields the same args as a long one with a zero authority.
func DecodeInitialize(payload []byte) (InitializeArgs, InitializeForm, error) {
	var args InitializeArgs
	switch len(payload) {
	case InitializeLongLen:
		if err := decodeExact(OpInitialize, payload, InitializeLongLen, &args); err != nil {
			return InitializeArgs{}, 0, err
		}
		return args, FormLong, nil
	case InitializeShortLen:
		if err := decodeExact(OpInitialize, payload, InitializeShortLen, &args); err != nil {
			return InitializeArgs{}, 0, err
		}
		return args, FormShort, nil
	default:
		return InitializeArgs{}, 0, amerrors.MalformedPayload(fmt.Sprintf(
			"initialize payload must be %d or %d bytes, got %d", InitializeShortLen, InitializeLongLen, len(payload)))
	}
}

// DepositArgs mints Amount LP tokens in exchange for at most MaxX and MaxY.
type DepositArgs struct {
	Amount     uint64
	MaxX       uint64
	MaxY       uint64
	Expiration int64
}

func (a *DepositArgs) Opcode() Opcode { return OpDeposit }

func (a *DepositArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	return writeQuad(encoder, a.Amount, a.MaxX, a.MaxY, a.Expiration)
}

func (a *DepositArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	a.Amount, a.MaxX, a.MaxY, a.Expiration, err = readQuad(decoder)
	return err
}

// DecodeDeposit decodes a Deposit payload.
func DecodeDeposit(payload []byte) (*DepositArgs, error) {
	args := new(DepositArgs)
	if err := decodeExact(OpDeposit, payload, DepositLen, args); err != nil {
		return nil, err
	}
	return args, nil
}

// WithdrawArgs burns Amount LP tokens for at least MinX and MinY.
type WithdrawArgs struct {
	Amount     uint64
	MinX       uint64
	MinY       uint64
	Expiration int64
}

func (a *WithdrawArgs) Opcode() Opcode { return OpWithdraw }

func (a *WithdrawArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	return writeQuad(encoder, a.Amount, a.MinX, a.MinY, a.Expiration)
}

func (a *WithdrawArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	a.Amount, a.MinX, a.MinY, a.Expiration, err = readQuad(decoder)
	return err
}

// DecodeWithdraw decodes a Withdraw payload.
func DecodeWithdraw(payload []byte) (*WithdrawArgs, error) {
	args := new(WithdrawArgs)
	if err := decodeExact(OpWithdraw, payload, WithdrawLen, args); err != nil {
		return nil, err
	}
	return args, nil
}

// SwapArgs trades Amount of X (IsX) or Y for at least Min of the other side.
type SwapArgs struct {
	IsX        bool
	Amount     uint64
	Min        uint64
	Expiration int64
}

func (a *SwapArgs) Opcode() Opcode { return OpSwap }

func (a *SwapArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBool(a.IsX); err != nil {
		return err
	}
	if err := encoder.WriteUint64(a.Amount, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteUint64(a.Min, bin.LE); err != nil {
		return err
	}
	return encoder.WriteInt64(a.Expiration, bin.LE)
}

func (a *SwapArgs) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	flag, err := decoder.ReadUint8()
	if err != nil {
		return err
	}
	switch flag {
	case 0:
		a.IsX = false
	case 1:
		a.IsX = true
	default:
		return fmt.Errorf("invalid direction byte %d", flag)
	}
	if a.Amount, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	if a.Min, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	a.Expiration, err = decoder.ReadInt64(bin.LE)
	return err
}

// DecodeSwap decodes a Swap payload. The direction byte must be 0 or 1.
func DecodeSwap(payload []byte) (*SwapArgs, error) {
	args := new(SwapArgs)
	if err := decodeExact(OpSwap, payload, SwapLen, args); err != nil {
		return nil, err
	}
	return args, nil
}

func readKey(decoder *bin.Decoder) (types.Pubkey, error) {
	b, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return types.Pubkey{}, err
	}
	return types.Pubkey(b), nil
}

func writeQuad(encoder *bin.Encoder, a, b, c uint64, d int64) error {
	for _, v := range []uint64{a, b, c} {
		if err := encoder.WriteUint64(v, bin.LE); err != nil {
			return err
		}
	}
	return encoder.WriteInt64(d, bin.LE)
}

func readQuad(decoder *bin.Decoder) (a, b, c uint64, d int64, err error) {
	if a, err = decoder.ReadUint64(bin.LE); err != nil {
		return
	}
	if b, err = decoder.ReadUint64(bin.LE); err != nil {
		return
	}
	if c, err = decoder.ReadUint64(bin.LE); err != nil {
		return
	}
	d, err = decoder.ReadInt64(bin.LE)
	return
}
