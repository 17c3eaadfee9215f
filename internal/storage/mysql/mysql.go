package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/lugondev/go-amm/internal/config"
	"github.com/lugondev/go-amm/internal/storage"
)

func init() {
	storage.RegisterMySQLFactory(func(ctx context.Context, cfg *config.MySQLConfig) (storage.Repository, error) {
		return NewMySQLRepository(ctx, cfg)
	})
}

type MySQLRepository struct {
	db             *sql.DB
	accountRepo    storage.AccountRepository
	invocationRepo storage.InvocationRepository
}

// DSN renders cfg for the mysql driver. Times are parsed into time.Time in UTC.
func DSN(cfg *config.MySQLConfig) string {
	dsn := mysql.NewConfig()
	dsn.User = cfg.User
	dsn.Passwd = cfg.Password
	dsn.Net = "tcp"
	dsn.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dsn.DBName = cfg.Database
	dsn.ParseTime = true
	dsn.MultiStatements = true
	dsn.Loc = time.UTC
	if cfg.SSLMode != "" && cfg.SSLMode != "false" && cfg.SSLMode != "disable" {
		dsn.TLSConfig = cfg.SSLMode
	}
	return dsn.FormatDSN()
}

func NewMySQLRepository(ctx context.Context, cfg *config.MySQLConfig) (*MySQLRepository, error) {
	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := NewMigrator(db).Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return newRepository(db), nil
}

func newRepository(db *sql.DB) *MySQLRepository {
	return &MySQLRepository{
		db:             db,
		accountRepo:    &mysqlAccountRepository{db: db},
		invocationRepo: &mysqlInvocationRepository{db: db},
	}
}

func (r *MySQLRepository) Accounts() storage.AccountRepository {
	return r.accountRepo
}

func (r *MySQLRepository) Invocations() storage.InvocationRepository {
	return r.invocationRepo
}

func (r *MySQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *MySQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
