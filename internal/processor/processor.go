// Package processor implements the AMM operations and the entrypoint that
// dispatches instructions to them.
//
// Each operation is a Processor over an Invocation. Processors do not keep
// state between invocations; every effect goes through the Host, which is
// responsible for atomicity, capability arbitration and signer verification.
package processor

import (
	"context"
	"log/slog"
	"time"

	amerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/metrics"
)

// Processor defines the interface for processing data within the engine.
//
// Implementations of this interface handle specific types of data and can record
// metrics during processing. The type parameter T specifies the input data type.
type Processor[T any] interface {
	// Process handles the given data.
	// The context is used for cancellation and timeouts.
	// The metrics collection is used for recording performance metrics.
	Process(ctx context.Context, data T, metrics *metrics.Collection) error
}

// ProcessorFunc is a function type that implements the Processor interface.
// It allows using functions as processors without creating a new type.
type ProcessorFunc[T any] func(ctx context.Context, data T, metrics *metrics.Collection) error

// Process implements the Processor interface.
func (f ProcessorFunc[T]) Process(ctx context.Context, data T, metrics *metrics.Collection) error {
	return f(ctx, data, metrics)
}

// InstrumentedProcessor wraps a processor with outcome metrics and logging.
type InstrumentedProcessor[T any] struct {
	name      string
	processor Processor[T]
	logger    *slog.Logger
}

// NewInstrumentedProcessor creates an InstrumentedProcessor recording under name.
func NewInstrumentedProcessor[T any](name string, processor Processor[T], logger *slog.Logger) *InstrumentedProcessor[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &InstrumentedProcessor[T]{
		name:      name,
		processor: processor,
		logger:    logger,
	}
}

// Process calls the wrapped processor and records how it went.
func (p *InstrumentedProcessor[T]) Process(ctx context.Context, data T, m *metrics.Collection) error {
	start := time.Now()
	err := p.processor.Process(ctx, data, m)
	elapsed := time.Since(start)

	if merr := m.RecordOperation(ctx, p.name, elapsed, err); merr != nil {
		p.logger.Debug("failed to record operation", "op", p.name, "error", merr)
	}

	if err != nil {
		p.logger.Warn("operation rejected",
			"op", p.name,
			"code", amerrors.CodeOf(err),
			"error", err,
		)
		return err
	}
	p.logger.Debug("operation completed", "op", p.name, "elapsed", elapsed)
	return nil
}
