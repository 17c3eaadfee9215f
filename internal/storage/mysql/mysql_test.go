package mysql

import (
	"context"
	"database/sql"
	"math"
	"os"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/go-amm/internal/config"
	"github.com/lugondev/go-amm/internal/storage/storagetest"
)

func TestDSN(t *testing.T) {
	cfg := &config.MySQLConfig{
		Host:     "localhost",
		Port:     3306,
		User:     "amm",
		Password: "amm123",
		Database: "amm_test",
		SSLMode:  "false",
	}

	parsed, err := mysql.ParseDSN(DSN(cfg))
	require.NoError(t, err)
	require.Equal(t, "amm", parsed.User)
	require.Equal(t, "amm123", parsed.Passwd)
	require.Equal(t, "localhost:3306", parsed.Addr)
	require.Equal(t, "amm_test", parsed.DBName)
	require.True(t, parsed.ParseTime)
	require.True(t, parsed.MultiStatements)
	require.Empty(t, parsed.TLSConfig)

	cfg.SSLMode = "skip-verify"
	parsed, err = mysql.ParseDSN(DSN(cfg))
	require.NoError(t, err)
	require.Equal(t, "skip-verify", parsed.TLSConfig)
}

func TestLimitArg(t *testing.T) {
	require.Equal(t, uint64(math.MaxUint64), limitArg(0))
	require.Equal(t, uint64(3), limitArg(3))
}

// Set AMM_TEST_MYSQL_DSN (e.g. amm:amm123@tcp(localhost:3306)/amm_test?parseTime=true&multiStatements=true)
// to run against a live server. The tables are dropped first.
func TestMySQLRepository(t *testing.T) {
	dsn := os.Getenv("AMM_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("AMM_TEST_MYSQL_DSN not set")
	}
	ctx := context.Background()

	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	defer db.Close()

	migrator := NewMigrator(db)
	_, err = migrator.Down(ctx, 0)
	require.NoError(t, err)
	applied, err := migrator.Up(ctx)
	require.NoError(t, err)
	require.Equal(t, len(migrations), applied)

	storagetest.Run(t, newRepository(db))
}
