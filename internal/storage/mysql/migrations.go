package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

type Migration struct {
	Version     int
	Description string
	Up          string
	Down        string
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Accounts and invocations",
		Up: `
		CREATE TABLE IF NOT EXISTS accounts (
			id VARCHAR(64) PRIMARY KEY,
			pubkey VARCHAR(64) UNIQUE NOT NULL,
			lamports BIGINT UNSIGNED NOT NULL,
			data LONGBLOB,
			owner VARCHAR(64) NOT NULL,
			executable BOOLEAN NOT NULL,
			rent_epoch BIGINT UNSIGNED NOT NULL,
			slot BIGINT UNSIGNED NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			created_at DATETIME(6) NOT NULL,
			INDEX idx_accounts_owner (owner, slot DESC)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin;

		CREATE TABLE IF NOT EXISTS invocations (
			id VARCHAR(64) PRIMARY KEY,
			scenario VARCHAR(255) NOT NULL,
			program_id VARCHAR(64) NOT NULL,
			operation VARCHAR(32) NOT NULL,
			accounts JSON NOT NULL,
			data BLOB,
			slot BIGINT UNSIGNED NOT NULL,
			unix_timestamp BIGINT NOT NULL,
			success BOOLEAN NOT NULL,
			error_code VARCHAR(64) NOT NULL DEFAULT '',
			error_message TEXT NOT NULL,
			grants INT NOT NULL,
			duration_micros BIGINT NOT NULL,
			created_at DATETIME(6) NOT NULL,
			INDEX idx_invocations_scenario (scenario, created_at),
			INDEX idx_invocations_created_at (created_at DESC),
			INDEX idx_invocations_error_code (error_code)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin;
		`,
		Down: `
		DROP TABLE IF EXISTS invocations;
		DROP TABLE IF EXISTS accounts;
		`,
	},
}

type Migrator struct {
	db *sql.DB
}

func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

// Up applies pending migrations, each in its own transaction, and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.ensureMigrationsTable(ctx); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied := 0
	for _, migration := range migrations {
		done, err := m.isMigrationApplied(ctx, migration.Version)
		if err != nil {
			return applied, fmt.Errorf("failed to check if migration %d is applied: %w", migration.Version, err)
		}
		if done {
			continue
		}
		if err := m.applyMigration(ctx, migration); err != nil {
			return applied, fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
		applied++
	}
	return applied, nil
}

// Down reverts every applied migration above targetVersion.
func (m *Migrator) Down(ctx context.Context, targetVersion int) (int, error) {
	if err := m.ensureMigrationsTable(ctx); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	reverted := 0
	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if migration.Version <= targetVersion {
			break
		}
		done, err := m.isMigrationApplied(ctx, migration.Version)
		if err != nil {
			return reverted, fmt.Errorf("failed to check if migration %d is applied: %w", migration.Version, err)
		}
		if !done {
			continue
		}
		if err := m.revertMigration(ctx, migration); err != nil {
			return reverted, fmt.Errorf("failed to revert migration %d: %w", migration.Version, err)
		}
		reverted++
	}
	return reverted, nil
}

func (m *Migrator) ensureMigrationsTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INT PRIMARY KEY,
		description VARCHAR(255) NOT NULL,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	_, err := m.db.ExecContext(ctx, query)
	return err
}

func (m *Migrator) isMigrationApplied(ctx context.Context, version int) (bool, error) {
	var count int
	err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MySQL commits DDL implicitly; the transaction only covers the bookkeeping row.
func (m *Migrator) applyMigration(ctx context.Context, migration Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, migration.Up); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`,
		migration.Version, migration.Description,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *Migrator) revertMigration(ctx context.Context, migration Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, migration.Down); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = ?`, migration.Version); err != nil {
		return err
	}
	return tx.Commit()
}
