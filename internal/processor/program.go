package processor

import (
	"context"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-amm/internal/common"
	"github.com/lugondev/go-amm/internal/instruction"
	"github.com/lugondev/go-amm/internal/metrics"
	"github.com/lugondev/go-amm/internal/runtime"
	"github.com/lugondev/go-amm/pkg/types"
)

// DefaultProgramID is the id the AMM is registered under when none is configured.
var DefaultProgramID = solana.MustPublicKeyFromBase58("22222222222222222222222222222222222222222222")

// LPDecimals is the decimals of every LP mint.
const LPDecimals = 6

// Program dispatches instructions to the operation processors.
type Program struct {
	common.LoggerMixin

	id         types.Pubkey
	metrics    *metrics.Collection
	processors map[instruction.Opcode]Processor[*Invocation]
}

// Option configures a Program.
type Option func(*Program)

// WithLogger sets the program logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Program) {
		if logger != nil {
			p.SetLogger(common.Component(logger, "amm"))
		}
	}
}

// WithMetrics sets the collection operation outcomes are recorded to.
func WithMetrics(m *metrics.Collection) Option {
	return func(p *Program) {
		if m != nil {
			p.metrics = m
		}
	}
}

// NewProgram creates the AMM program registered under id.
func NewProgram(id types.Pubkey, opts ...Option) *Program {
	p := &Program{
		id:      id,
		metrics: metrics.NewCollection(),
	}
	for _, opt := range opts {
		opt(p)
	}

	logger := p.GetLogger()
	p.processors = map[instruction.Opcode]Processor[*Invocation]{
		instruction.OpInitialize: NewInstrumentedProcessor[*Invocation](instruction.OpInitialize.String(), InitializeProcessor{}, logger),
		instruction.OpDeposit:    NewInstrumentedProcessor[*Invocation](instruction.OpDeposit.String(), DepositProcessor{}, logger),
		instruction.OpWithdraw:   NewInstrumentedProcessor[*Invocation](instruction.OpWithdraw.String(), WithdrawProcessor{}, logger),
		instruction.OpSwap:       NewInstrumentedProcessor[*Invocation](instruction.OpSwap.String(), SwapProcessor{}, logger),
	}
	return p
}

// ID returns the program id.
func (p *Program) ID() types.Pubkey { return p.id }

// Metrics returns the collection the program records to.
func (p *Program) Metrics() *metrics.Collection { return p.metrics }

// Process decodes the opcode and runs the matching operation. Empty data and
// unknown opcodes are rejected before any account is read.
func (p *Program) Process(host Host, accounts []*runtime.AccountInfo, data []byte) error {
	op, payload, err := instruction.Split(data)
	if err != nil {
		p.GetLogger().Warn("instruction rejected", "error", err)
		return err
	}

	ctx := host.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return p.processors[op].Process(ctx, &Invocation{
		Host:     host,
		Accounts: accounts,
		Payload:  payload,
	}, p.metrics)
}

// Entrypoint adapts the program to the runtime.
func (p *Program) Entrypoint() runtime.Entrypoint {
	return func(ctx *runtime.InvokeContext, accounts []*runtime.AccountInfo, data []byte) error {
		return p.Process(ctx, accounts, data)
	}
}

// Register registers the program with bank under its id.
func (p *Program) Register(bank *runtime.Bank) {
	bank.RegisterProgram(p.id, p.Entrypoint())
}
