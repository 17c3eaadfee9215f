package runtime

import (
	"context"
	"log/slog"

	"github.com/lugondev/go-amm/internal/authority"
	"github.com/lugondev/go-amm/pkg/types"
)

// InvokeContext is what a running program sees of the host.
type InvokeContext struct {
	ctx       context.Context
	bank      *Bank
	programID types.Pubkey
	signers   map[types.Pubkey]bool
	arbiter   *arbiter
	logger    *slog.Logger
}

// Context returns the context of the enclosing Execute call.
func (c *InvokeContext) Context() context.Context { return c.ctx }

// ProgramID returns the id of the running program.
func (c *InvokeContext) ProgramID() types.Pubkey { return c.programID }

// Clock returns the clock sysvar.
func (c *InvokeContext) Clock() Clock { return c.bank.clock }

// Rent returns the rent sysvar.
func (c *InvokeContext) Rent() Rent { return c.bank.rent }

// Logger returns the invocation logger.
func (c *InvokeContext) Logger() *slog.Logger { return c.logger }

// authorized reports whether key signed the transaction or is derived by one
// of signers under the running program id.
func (c *InvokeContext) authorized(key types.Pubkey, signers []authority.Signer) bool {
	if c.signers[key] {
		return true
	}
	for _, seeds := range signers {
		addr, err := c.bank.deriver.Derive(seeds, c.programID)
		if err != nil {
			continue
		}
		if addr.Equals(key) {
			return true
		}
	}
	return false
}

// cpi switches grant ownership to program for the duration of a primitive.
func (c *InvokeContext) cpi(program types.Pubkey) func() {
	return c.arbiter.enter(program.String())
}
