package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lugondev/go-amm/internal/storage"
)

const accountColumns = `id, pubkey, lamports, data, owner, executable, rent_epoch, slot, updated_at, created_at`

const upsertAccount = `
	INSERT INTO accounts (` + accountColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (pubkey) DO UPDATE SET
		lamports = $3, data = $4, owner = $5, executable = $6, rent_epoch = $7, slot = $8, updated_at = $9
`

type postgresAccountRepository struct {
	pool *pgxpool.Pool
}

func accountArgs(a *storage.AccountModel) []any {
	return []any{
		a.ID, a.Pubkey, a.Lamports, a.Data, a.Owner,
		a.Executable, a.RentEpoch, a.Slot, a.UpdatedAt, a.CreatedAt,
	}
}

func scanAccount(row pgx.Row) (*storage.AccountModel, error) {
	var a storage.AccountModel
	if err := row.Scan(
		&a.ID, &a.Pubkey, &a.Lamports, &a.Data, &a.Owner,
		&a.Executable, &a.RentEpoch, &a.Slot, &a.UpdatedAt, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *postgresAccountRepository) Save(ctx context.Context, account *storage.AccountModel) error {
	_, err := r.pool.Exec(ctx, upsertAccount, accountArgs(account)...)
	return err
}

func (r *postgresAccountRepository) SaveBatch(ctx context.Context, accounts []*storage.AccountModel) error {
	return storage.NewPostgresBatchHelper(r.pool).Exec(ctx, upsertAccount, len(accounts), func(i int) []any {
		return accountArgs(accounts[i])
	})
}

func (r *postgresAccountRepository) FindByPubkey(ctx context.Context, pubkey string) (*storage.AccountModel, error) {
	return QueryOne(ctx, r.pool, `SELECT `+accountColumns+` FROM accounts WHERE pubkey = $1`, scanAccount, pubkey)
}

func (r *postgresAccountRepository) FindByOwner(ctx context.Context, owner string, limit int, offset int) ([]*storage.AccountModel, error) {
	return QueryMany(ctx, r.pool,
		`SELECT `+accountColumns+` FROM accounts WHERE owner = $1 ORDER BY slot DESC, pubkey LIMIT $2 OFFSET $3`,
		scanAccount, owner, limitArg(limit), offset,
	)
}

func (r *postgresAccountRepository) Delete(ctx context.Context, pubkey string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE pubkey = $1`, pubkey)
	return err
}

const invocationColumns = `id, scenario, program_id, operation, accounts, data, slot, unix_timestamp,
	success, error_code, error_message, grants, duration_micros, created_at`

const upsertInvocation = `
	INSERT INTO invocations (` + invocationColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (id) DO UPDATE SET
		scenario = $2, program_id = $3, operation = $4, accounts = $5, data = $6, slot = $7,
		unix_timestamp = $8, success = $9, error_code = $10, error_message = $11, grants = $12,
		duration_micros = $13, created_at = $14
`

type postgresInvocationRepository struct {
	pool *pgxpool.Pool
}

func invocationArgs(inv *storage.InvocationModel) []any {
	accounts := inv.Accounts
	if accounts == nil {
		accounts = []string{}
	}
	return []any{
		inv.ID, inv.Scenario, inv.ProgramID, inv.Operation, accounts, inv.Data, inv.Slot, inv.UnixTimestamp,
		inv.Success, inv.ErrorCode, inv.ErrorMessage, inv.Grants, inv.DurationMicros, inv.CreatedAt,
	}
}

func scanInvocation(row pgx.Row) (*storage.InvocationModel, error) {
	var inv storage.InvocationModel
	if err := row.Scan(
		&inv.ID, &inv.Scenario, &inv.ProgramID, &inv.Operation, &inv.Accounts, &inv.Data, &inv.Slot, &inv.UnixTimestamp,
		&inv.Success, &inv.ErrorCode, &inv.ErrorMessage, &inv.Grants, &inv.DurationMicros, &inv.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *postgresInvocationRepository) Save(ctx context.Context, invocation *storage.InvocationModel) error {
	_, err := r.pool.Exec(ctx, upsertInvocation, invocationArgs(invocation)...)
	return err
}

func (r *postgresInvocationRepository) SaveBatch(ctx context.Context, invocations []*storage.InvocationModel) error {
	return storage.NewPostgresBatchHelper(r.pool).Exec(ctx, upsertInvocation, len(invocations), func(i int) []any {
		return invocationArgs(invocations[i])
	})
}

func (r *postgresInvocationRepository) FindByID(ctx context.Context, id string) (*storage.InvocationModel, error) {
	return QueryOne(ctx, r.pool, `SELECT `+invocationColumns+` FROM invocations WHERE id = $1`, scanInvocation, id)
}

func (r *postgresInvocationRepository) FindByScenario(ctx context.Context, scenario string, limit int, offset int) ([]*storage.InvocationModel, error) {
	return QueryMany(ctx, r.pool,
		`SELECT `+invocationColumns+` FROM invocations WHERE scenario = $1 ORDER BY created_at, id LIMIT $2 OFFSET $3`,
		scanInvocation, scenario, limitArg(limit), offset,
	)
}

func (r *postgresInvocationRepository) FindRecent(ctx context.Context, limit int) ([]*storage.InvocationModel, error) {
	return QueryMany(ctx, r.pool,
		`SELECT `+invocationColumns+` FROM invocations ORDER BY created_at DESC, id DESC LIMIT $1`,
		scanInvocation, limitArg(limit),
	)
}
