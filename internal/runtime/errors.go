package runtime

import "errors"

// Errors returned by the host and its system and token primitives.
var (
	ErrProgramNotFound     = errors.New("runtime: program not registered")
	ErrAccountBorrowFailed = errors.New("runtime: account already borrowed")
	ErrAccountNotWritable  = errors.New("runtime: account not writable")
	ErrMissingSignature    = errors.New("runtime: missing required signature")
	ErrAccountAlreadyInUse = errors.New("runtime: account already in use")
	ErrInsufficientFunds   = errors.New("runtime: insufficient funds")
	ErrInvalidAccountOwner = errors.New("runtime: invalid account owner")
	ErrInvalidAccountData  = errors.New("runtime: invalid account data")
	ErrOwnerMismatch       = errors.New("runtime: owner does not match")
	ErrMintMismatch        = errors.New("runtime: account not associated with this mint")
	ErrUninitialized       = errors.New("runtime: account uninitialized")
	ErrAlreadyInitialized  = errors.New("runtime: account already initialized")
	ErrAccountFrozen       = errors.New("runtime: account frozen")
	ErrNotRentExempt       = errors.New("runtime: lamport balance below rent-exempt threshold")
	ErrOverflow            = errors.New("runtime: operation overflowed")
	ErrInvalidSeeds        = errors.New("runtime: provided seeds do not derive a signer")
	ErrMaxDataSizeExceeded = errors.New("runtime: requested space too large")
	ErrCapabilityNotHeld   = errors.New("runtime: capability already released")
)
