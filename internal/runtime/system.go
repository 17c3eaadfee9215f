package runtime

import (
	"fmt"

	"github.com/lugondev/go-amm/internal/authority"
	"github.com/lugondev/go-amm/pkg/types"
)

// CreateAccount funds to with lamports from from, allocates space zeroed bytes
// and assigns it to owner. from must have signed the transaction; to must have
// signed or be derived by one of signers under the calling program.
func (c *InvokeContext) CreateAccount(from, to *AccountInfo, lamports, space uint64, owner types.Pubkey, signers ...authority.Signer) error {
	defer c.cpi(types.SystemProgramID)()

	if !c.signers[from.Key()] {
		return fmt.Errorf("%w: funder %s", ErrMissingSignature, from.Key())
	}
	if !c.authorized(to.Key(), signers) {
		if len(signers) > 0 {
			return fmt.Errorf("%w: %s", ErrInvalidSeeds, to.Key())
		}
		return fmt.Errorf("%w: new account %s", ErrMissingSignature, to.Key())
	}
	if from.Key().Equals(to.Key()) {
		return fmt.Errorf("%w: %s", ErrAccountAlreadyInUse, to.Key())
	}
	if space > MaxPermittedDataLength {
		return fmt.Errorf("%w: %d bytes", ErrMaxDataSizeExceeded, space)
	}

	fromRef, err := from.BorrowMut()
	if err != nil {
		return err
	}
	defer fromRef.Release()

	toRef, err := to.BorrowMut()
	if err != nil {
		return err
	}
	defer toRef.Release()

	if !to.account.IsUnused() {
		return fmt.Errorf("%w: %s", ErrAccountAlreadyInUse, to.Key())
	}
	if !from.Owner().Equals(types.SystemProgramID) || len(from.account.Data) != 0 {
		return fmt.Errorf("%w: funder %s must be a system account", ErrInvalidAccountOwner, from.Key())
	}
	if from.Lamports() < lamports {
		return fmt.Errorf("%w: funder has %d, needs %d", ErrInsufficientFunds, from.Lamports(), lamports)
	}

	fromRef.setLamports(from.Lamports() - lamports)
	toRef.setLamports(lamports)
	toRef.allocate(space)
	toRef.assign(owner)

	c.logger.Debug("account created",
		"account", to.Key().String(),
		"owner", owner.String(),
		"space", space,
		"lamports", lamports,
	)
	return nil
}
