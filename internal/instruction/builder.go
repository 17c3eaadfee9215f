package instruction

import (
	"github.com/lugondev/go-amm/pkg/types"
)

// PoolKeys are the pool-side accounts of Deposit, Withdraw and Swap.
type PoolKeys struct {
	Config types.Pubkey
	MintLP types.Pubkey
	VaultX types.Pubkey
	VaultY types.Pubkey
}

// UserKeys are the trader-side accounts. LP is unused by Swap.
type UserKeys struct {
	User types.Pubkey
	X    types.Pubkey
	Y    types.Pubkey
	LP   types.Pubkey
}

// NewInitializeInstruction builds an Initialize instruction. The short form is
// used when args carry no authority.
//
// Accounts: initializer (signer), mint_lp, config.
func NewInitializeInstruction(programID, initializer, mintLP, config types.Pubkey, args InitializeArgs) (types.Instruction, error) {
	var (
		data []byte
		err  error
	)
	if args.Form() == FormShort {
		data, err = args.EncodeShort()
	} else {
		data, err = Encode(&args)
	}
	if err != nil {
		return types.Instruction{}, err
	}

	return types.Instruction{
		ProgramID: programID,
		Accounts: []types.AccountMeta{
			types.Meta(initializer, true, true),
			types.Meta(mintLP, false, true),
			types.Meta(config, false, true),
		},
		Data: data,
	}, nil
}

// NewDepositInstruction builds a Deposit instruction.
//
// Accounts: user (signer), mint_lp, vault_x, vault_y, user_x, user_y, user_lp,
// config, token program.
func NewDepositInstruction(programID types.Pubkey, pool PoolKeys, user UserKeys, args DepositArgs) (types.Instruction, error) {
	data, err := Encode(&args)
	if err != nil {
		return types.Instruction{}, err
	}
	return types.Instruction{
		ProgramID: programID,
		Accounts:  liquidityMetas(pool, user),
		Data:      data,
	}, nil
}

// NewWithdrawInstruction builds a Withdraw instruction with the Deposit account order.
func NewWithdrawInstruction(programID types.Pubkey, pool PoolKeys, user UserKeys, args WithdrawArgs) (types.Instruction, error) {
	data, err := Encode(&args)
	if err != nil {
		return types.Instruction{}, err
	}
	return types.Instruction{
		ProgramID: programID,
		Accounts:  liquidityMetas(pool, user),
		Data:      data,
	}, nil
}

// NewSwapInstruction builds a Swap instruction.
//
// Accounts: user (signer), user_x, user_y, vault_x, vault_y, config, token program.
func NewSwapInstruction(programID types.Pubkey, pool PoolKeys, user UserKeys, args SwapArgs) (types.Instruction, error) {
	data, err := Encode(&args)
	if err != nil {
		return types.Instruction{}, err
	}
	return types.Instruction{
		ProgramID: programID,
		Accounts: []types.AccountMeta{
			types.Meta(user.User, true, false),
			types.Meta(user.X, false, true),
			types.Meta(user.Y, false, true),
			types.Meta(pool.VaultX, false, true),
			types.Meta(pool.VaultY, false, true),
			types.Meta(pool.Config, false, false),
			types.Meta(types.TokenProgramID, false, false),
		},
		Data: data,
	}, nil
}

func liquidityMetas(pool PoolKeys, user UserKeys) []types.AccountMeta {
	return []types.AccountMeta{
		types.Meta(user.User, true, false),
		types.Meta(pool.MintLP, false, true),
		types.Meta(pool.VaultX, false, true),
		types.Meta(pool.VaultY, false, true),
		types.Meta(user.X, false, true),
		types.Meta(user.Y, false, true),
		types.Meta(user.LP, false, true),
		types.Meta(pool.Config, false, false),
		types.Meta(types.TokenProgramID, false, false),
	}
}
