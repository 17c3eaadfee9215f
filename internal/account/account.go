// Package account binds the positional account list of an instruction to the
// named roles each AMM operation works with.
//
// # Overview
//
// Every operation declares an arity. Resolution fails with MISSING_ACCOUNTS when
// fewer accounts than the arity are supplied, and it does so before any account
// data is touched. Accounts beyond the arity are ignored. Resolution binds
// roles only: ownership, signer status and data are checked later by the
// operation and the primitives it invokes.
//
// The role orders are:
//   - Initialize: initializer, mint_lp, config
//   - Deposit and Withdraw: user, mint_lp, vault_x, vault_y, user_x, user_y,
//     user_lp, config, token program
//   - Swap: user, user_x, user_y, vault_x, vault_y, config, token program
package account

import (
	amerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/runtime"
)

// Arity of each operation.
const (
	InitializeArity = 3
	DepositArity    = 9
	WithdrawArity   = 9
	SwapArity       = 7
)

// InitializeAccounts are the roles of an Initialize instruction.
type InitializeAccounts struct {
	// Initializer funds both new accounts and must sign.
	Initializer *runtime.AccountInfo

	// MintLP is the LP mint to create.
	MintLP *runtime.AccountInfo

	// Config is the pool record to create. Its address is the pool authority.
	Config *runtime.AccountInfo
}

// LiquidityAccounts are the roles shared by Deposit and Withdraw.
type LiquidityAccounts struct {
	User         *runtime.AccountInfo
	MintLP       *runtime.AccountInfo
	VaultX       *runtime.AccountInfo
	VaultY       *runtime.AccountInfo
	UserX        *runtime.AccountInfo
	UserY        *runtime.AccountInfo
	UserLP       *runtime.AccountInfo
	Config       *runtime.AccountInfo
	TokenProgram *runtime.AccountInfo
}

// SwapAccounts are the roles of a Swap instruction.
type SwapAccounts struct {
	User         *runtime.AccountInfo
	UserX        *runtime.AccountInfo
	UserY        *runtime.AccountInfo
	VaultX       *runtime.AccountInfo
	VaultY       *runtime.AccountInfo
	Config       *runtime.AccountInfo
	TokenProgram *runtime.AccountInfo
}

func requireArity(op string, accounts []*runtime.AccountInfo, arity int) error {
	if len(accounts) < arity {
		return amerrors.MissingAccounts(op, arity, len(accounts))
	}
	return nil
}

// ResolveInitialize binds the Initialize roles.
func ResolveInitialize(accounts []*runtime.AccountInfo) (*InitializeAccounts, error) {
	if err := requireArity("initialize", accounts, InitializeArity); err != nil {
		return nil, err
	}
	return &InitializeAccounts{
		Initializer: accounts[0],
		MintLP:      accounts[1],
		Config:      accounts[2],
	}, nil
}

// ResolveDeposit binds the Deposit roles.
func ResolveDeposit(accounts []*runtime.AccountInfo) (*LiquidityAccounts, error) {
	return resolveLiquidity("deposit", accounts, DepositArity)
}

// ResolveWithdraw binds the Withdraw roles.
func ResolveWithdraw(accounts []*runtime.AccountInfo) (*LiquidityAccounts, error) {
	return resolveLiquidity("withdraw", accounts, WithdrawArity)
}

func resolveLiquidity(op string, accounts []*runtime.AccountInfo, arity int) (*LiquidityAccounts, error) {
	if err := requireArity(op, accounts, arity); err != nil {
		return nil, err
	}
	return &LiquidityAccounts{
		User:         accounts[0],
		MintLP:       accounts[1],
		VaultX:       accounts[2],
		VaultY:       accounts[3],
		UserX:        accounts[4],
		UserY:        accounts[5],
		UserLP:       accounts[6],
		Config:       accounts[7],
		TokenProgram: accounts[8],
	}, nil
}

// ResolveSwap binds the Swap roles.
func ResolveSwap(accounts []*runtime.AccountInfo) (*SwapAccounts, error) {
	if err := requireArity("swap", accounts, SwapArity); err != nil {
		return nil, err
	}
	return &SwapAccounts{
		User:         accounts[0],
		UserX:        accounts[1],
		UserY:        accounts[2],
		VaultX:       accounts[3],
		VaultY:       accounts[4],
		Config:       accounts[5],
		TokenProgram: accounts[6],
	}, nil
}
