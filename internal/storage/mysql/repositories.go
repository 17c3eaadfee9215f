package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/lugondev/go-amm/internal/storage"
)

type scanner interface {
	Scan(dest ...any) error
}

// limitArg maps a non-positive limit to the largest row count MySQL accepts.
func limitArg(limit int) uint64 {
	if limit <= 0 {
		return math.MaxUint64
	}
	return uint64(limit)
}

func queryMany[T any](ctx context.Context, db *sql.DB, query string, scan func(scanner) (*T, error), args ...any) ([]*T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func queryOne[T any](ctx context.Context, db *sql.DB, query string, scan func(scanner) (*T, error), args ...any) (*T, error) {
	item, err := scan(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

const accountColumns = `id, pubkey, lamports, data, owner, executable, rent_epoch, slot, updated_at, created_at`

const upsertAccount = `
	INSERT INTO accounts (` + accountColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		lamports = VALUES(lamports),
		data = VALUES(data),
		owner = VALUES(owner),
		executable = VALUES(executable),
		rent_epoch = VALUES(rent_epoch),
		slot = VALUES(slot),
		updated_at = VALUES(updated_at)
`

type mysqlAccountRepository struct {
	db *sql.DB
}

func accountArgs(a *storage.AccountModel) []any {
	return []any{
		a.ID, a.Pubkey, a.Lamports, a.Data, a.Owner,
		a.Executable, a.RentEpoch, a.Slot, a.UpdatedAt, a.CreatedAt,
	}
}

func scanAccount(row scanner) (*storage.AccountModel, error) {
	var a storage.AccountModel
	if err := row.Scan(
		&a.ID, &a.Pubkey, &a.Lamports, &a.Data, &a.Owner,
		&a.Executable, &a.RentEpoch, &a.Slot, &a.UpdatedAt, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *mysqlAccountRepository) Save(ctx context.Context, account *storage.AccountModel) error {
	_, err := r.db.ExecContext(ctx, upsertAccount, accountArgs(account)...)
	return err
}

func (r *mysqlAccountRepository) SaveBatch(ctx context.Context, accounts []*storage.AccountModel) error {
	return storage.NewMySQLBatchHelper(r.db).Exec(ctx, upsertAccount, len(accounts), func(i int) []any {
		return accountArgs(accounts[i])
	})
}

func (r *mysqlAccountRepository) FindByPubkey(ctx context.Context, pubkey string) (*storage.AccountModel, error) {
	return queryOne(ctx, r.db, `SELECT `+accountColumns+` FROM accounts WHERE pubkey = ?`, scanAccount, pubkey)
}

func (r *mysqlAccountRepository) FindByOwner(ctx context.Context, owner string, limit int, offset int) ([]*storage.AccountModel, error) {
	return queryMany(ctx, r.db,
		`SELECT `+accountColumns+` FROM accounts WHERE owner = ? ORDER BY slot DESC, pubkey LIMIT ? OFFSET ?`,
		scanAccount, owner, limitArg(limit), offset,
	)
}

func (r *mysqlAccountRepository) Delete(ctx context.Context, pubkey string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE pubkey = ?`, pubkey)
	return err
}

const invocationColumns = `id, scenario, program_id, operation, accounts, data, slot, unix_timestamp,
	success, error_code, error_message, grants, duration_micros, created_at`

const upsertInvocation = `
	INSERT INTO invocations (` + invocationColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		scenario = VALUES(scenario),
		program_id = VALUES(program_id),
		operation = VALUES(operation),
		accounts = VALUES(accounts),
		data = VALUES(data),
		slot = VALUES(slot),
		unix_timestamp = VALUES(unix_timestamp),
		success = VALUES(success),
		error_code = VALUES(error_code),
		error_message = VALUES(error_message),
		grants = VALUES(grants),
		duration_micros = VALUES(duration_micros),
		created_at = VALUES(created_at)
`

type mysqlInvocationRepository struct {
	db *sql.DB
}

func invocationArgs(inv *storage.InvocationModel) ([]any, error) {
	accounts := inv.Accounts
	if accounts == nil {
		accounts = []string{}
	}
	accountsJSON, err := json.Marshal(accounts)
	if err != nil {
		return nil, fmt.Errorf("encode accounts of %s: %w", inv.ID, err)
	}
	return []any{
		inv.ID, inv.Scenario, inv.ProgramID, inv.Operation, accountsJSON, inv.Data, inv.Slot, inv.UnixTimestamp,
		inv.Success, inv.ErrorCode, inv.ErrorMessage, inv.Grants, inv.DurationMicros, inv.CreatedAt,
	}, nil
}

func scanInvocation(row scanner) (*storage.InvocationModel, error) {
	var (
		inv      storage.InvocationModel
		accounts []byte
	)
	if err := row.Scan(
		&inv.ID, &inv.Scenario, &inv.ProgramID, &inv.Operation, &accounts, &inv.Data, &inv.Slot, &inv.UnixTimestamp,
		&inv.Success, &inv.ErrorCode, &inv.ErrorMessage, &inv.Grants, &inv.DurationMicros, &inv.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(accounts, &inv.Accounts); err != nil {
		return nil, fmt.Errorf("decode accounts of %s: %w", inv.ID, err)
	}
	return &inv, nil
}

func (r *mysqlInvocationRepository) Save(ctx context.Context, invocation *storage.InvocationModel) error {
	args, err := invocationArgs(invocation)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, upsertInvocation, args...)
	return err
}

func (r *mysqlInvocationRepository) SaveBatch(ctx context.Context, invocations []*storage.InvocationModel) error {
	args := make([][]any, len(invocations))
	for i, inv := range invocations {
		a, err := invocationArgs(inv)
		if err != nil {
			return err
		}
		args[i] = a
	}
	return storage.NewMySQLBatchHelper(r.db).Exec(ctx, upsertInvocation, len(args), func(i int) []any {
		return args[i]
	})
}

func (r *mysqlInvocationRepository) FindByID(ctx context.Context, id string) (*storage.InvocationModel, error) {
	return queryOne(ctx, r.db, `SELECT `+invocationColumns+` FROM invocations WHERE id = ?`, scanInvocation, id)
}

func (r *mysqlInvocationRepository) FindByScenario(ctx context.Context, scenario string, limit int, offset int) ([]*storage.InvocationModel, error) {
	return queryMany(ctx, r.db,
		`SELECT `+invocationColumns+` FROM invocations WHERE scenario = ? ORDER BY created_at, id LIMIT ? OFFSET ?`,
		scanInvocation, scenario, limitArg(limit), offset,
	)
}

func (r *mysqlInvocationRepository) FindRecent(ctx context.Context, limit int) ([]*storage.InvocationModel, error) {
	return queryMany(ctx, r.db,
		`SELECT `+invocationColumns+` FROM invocations ORDER BY created_at DESC, id DESC LIMIT ?`,
		scanInvocation, limitArg(limit),
	)
}
