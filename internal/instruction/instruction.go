// Package instruction implements the wire codec of the AMM program.
//
// An instruction's data is a one-byte opcode followed by a fixed-length payload.
// All integers are little-endian and keys are 32 raw bytes. The codec is explicit
// field by field: payloads are never reinterpreted in place, and a payload whose
// length differs from the opcode's declared length is rejected.
//
// The package includes the following main components:
//   - Opcode: the operation selector carried in the first byte.
//   - InitializeArgs, DepositArgs, WithdrawArgs, SwapArgs: typed payloads with
//     MarshalWithEncoder/UnmarshalWithDecoder pairs.
//   - Decode/Encode: whole-instruction codec returning a typed Args value.
//   - New*Instruction: builders that lay out accounts in the order the program
//     expects.
package instruction

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"

	amerrors "github.com/lugondev/go-amm/internal/errors"
)

// Opcode selects the operation an instruction performs.
type Opcode uint8

const (
	OpInitialize Opcode = 0
	OpDeposit    Opcode = 1
	OpWithdraw   Opcode = 2
	OpSwap       Opcode = 3
)

// String returns the operation name.
func (o Opcode) String() string {
	switch o {
	case OpInitialize:
		return "initialize"
	case OpDeposit:
		return "deposit"
	case OpWithdraw:
		return "withdraw"
	case OpSwap:
		return "swap"
	default:
		return fmt.Sprintf("opcode(%d)", uint8(o))
	}
}

// Valid reports whether o names a known operation.
func (o Opcode) Valid() bool {
	return o <= OpSwap
}

// Args is a decoded instruction payload.
type Args interface {
	// Opcode returns the operation the payload belongs to.
	Opcode() Opcode

	// MarshalWithEncoder writes the payload, without the opcode byte.
	MarshalWithEncoder(encoder *bin.Encoder) error
}

type unmarshaler interface {
	UnmarshalWithDecoder(decoder *bin.Decoder) error
}

// Split separates the opcode from the payload.
// Empty data and unknown opcodes are malformed.
func Split(data []byte) (Opcode, []byte, error) {
	if len(data) == 0 {
		return 0, nil, amerrors.MalformedPayload("empty instruction data")
	}
	op := Opcode(data[0])
	if !op.Valid() {
		return 0, nil, amerrors.MalformedPayload(fmt.Sprintf("unknown opcode %d", data[0]))
	}
	return op, data[1:], nil
}

// Decode decodes a whole instruction into its typed payload.
func Decode(data []byte) (Args, error) {
	op, payload, err := Split(data)
	if err != nil {
		return nil, err
	}
	return DecodePayload(op, payload)
}

// DecodePayload decodes the payload of the given opcode.
func DecodePayload(op Opcode, payload []byte) (Args, error) {
	switch op {
	case OpInitialize:
		args, _, err := DecodeInitialize(payload)
		if err != nil {
			return nil, err
		}
		return &args, nil
	case OpDeposit:
		return DecodeDeposit(payload)
	case OpWithdraw:
		return DecodeWithdraw(payload)
	case OpSwap:
		return DecodeSwap(payload)
	default:
		return nil, amerrors.MalformedPayload(fmt.Sprintf("unknown opcode %d", uint8(op)))
	}
}

// Encode writes the opcode byte followed by the payload.
func Encode(args Args) ([]byte, error) {
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)

	if err := encoder.WriteUint8(uint8(args.Opcode())); err != nil {
		return nil, err
	}
	if err := args.MarshalWithEncoder(encoder); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeExact decodes payload into v, requiring exactly want bytes.
func decodeExact(op Opcode, payload []byte, want int, v unmarshaler) error {
	if len(payload) != want {
		return amerrors.MalformedPayload(fmt.Sprintf("%s payload must be %d bytes, got %d", op, want, len(payload))).
			WithDetails(map[string]any{"op": op.String(), "want": want, "got": len(payload)})
	}
	if err := v.UnmarshalWithDecoder(bin.NewBinDecoder(payload)); err != nil {
		return amerrors.MalformedPayload(fmt.Sprintf("decode %s payload", op)).WithCause(err)
	}
	return nil
}
