package storage

import (
	"time"

	amerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/instruction"
	"github.com/lugondev/go-amm/internal/runtime"
	"github.com/lugondev/go-amm/pkg/types"
)

type AccountModel struct {
	ID         string    `json:"id" bson:"_id,omitempty" db:"id"`
	Pubkey     string    `json:"pubkey" bson:"pubkey" db:"pubkey"`
	Lamports   uint64    `json:"lamports" bson:"lamports" db:"lamports"`
	Data       []byte    `json:"data" bson:"data" db:"data"`
	Owner      string    `json:"owner" bson:"owner" db:"owner"`
	Executable bool      `json:"executable" bson:"executable" db:"executable"`
	RentEpoch  uint64    `json:"rent_epoch" bson:"rent_epoch" db:"rent_epoch"`
	Slot       uint64    `json:"slot" bson:"slot" db:"slot"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at" db:"updated_at"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at" db:"created_at"`
}

// InvocationModel is one journaled instruction execution.
type InvocationModel struct {
	ID             string    `json:"id" bson:"_id,omitempty" db:"id"`
	Scenario       string    `json:"scenario" bson:"scenario" db:"scenario"`
	ProgramID      string    `json:"program_id" bson:"program_id" db:"program_id"`
	Operation      string    `json:"operation" bson:"operation" db:"operation"`
	Accounts       []string  `json:"accounts" bson:"accounts" db:"accounts"`
	Data           []byte    `json:"data" bson:"data" db:"data"`
	Slot           uint64    `json:"slot" bson:"slot" db:"slot"`
	UnixTimestamp  int64     `json:"unix_timestamp" bson:"unix_timestamp" db:"unix_timestamp"`
	Success        bool      `json:"success" bson:"success" db:"success"`
	ErrorCode      string    `json:"error_code,omitempty" bson:"error_code,omitempty" db:"error_code"`
	ErrorMessage   string    `json:"error_message,omitempty" bson:"error_message,omitempty" db:"error_message"`
	Grants         int       `json:"grants" bson:"grants" db:"grants"`
	DurationMicros int64     `json:"duration_micros" bson:"duration_micros" db:"duration_micros"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at" db:"created_at"`
}

func AccountToModel(pubkey types.Pubkey, account *types.Account, slot uint64) *AccountModel {
	now := time.Now()
	return &AccountModel{
		ID:         pubkey.String(),
		Pubkey:     pubkey.String(),
		Lamports:   account.Lamports,
		Data:       account.Data,
		Owner:      account.Owner.String(),
		Executable: account.Executable,
		RentEpoch:  account.RentEpoch,
		Slot:       slot,
		UpdatedAt:  now,
		CreatedAt:  now,
	}
}

// ReceiptToModel converts a runtime receipt. scenario may be empty.
func ReceiptToModel(scenario string, r *runtime.Receipt) *InvocationModel {
	accounts := make([]string, 0, len(r.Instruction.Accounts))
	for _, meta := range r.Instruction.Accounts {
		accounts = append(accounts, meta.Pubkey.String())
	}

	operation := "unknown"
	if op, _, err := instruction.Split(r.Instruction.Data); err == nil {
		operation = op.String()
	}

	model := &InvocationModel{
		ID:             r.ID.String(),
		Scenario:       scenario,
		ProgramID:      r.ProgramID.String(),
		Operation:      operation,
		Accounts:       accounts,
		Data:           r.Instruction.Data,
		Slot:           r.Slot,
		UnixTimestamp:  r.UnixTimestamp,
		Success:        r.Succeeded(),
		Grants:         len(r.Grants),
		DurationMicros: r.Duration.Microseconds(),
		CreatedAt:      time.Now(),
	}
	if r.Err != nil {
		model.ErrorCode = amerrors.CodeOf(r.Err)
		model.ErrorMessage = r.Err.Error()
	}
	return model
}
