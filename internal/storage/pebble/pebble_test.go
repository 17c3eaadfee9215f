package pebble

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lugondev/go-amm/internal/config"
	"github.com/lugondev/go-amm/internal/storage"
	"github.com/lugondev/go-amm/internal/storage/storagetest"
)

func openTemp(t *testing.T) *PebbleRepository {
	t.Helper()
	repo, err := NewPebbleRepository(&config.PebbleConfig{Path: filepath.Join(t.TempDir(), "journal")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestPebbleRepository(t *testing.T) {
	storagetest.Run(t, openTemp(t))
}

func TestPebbleReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal")
	ctx := context.Background()

	repo, err := NewPebbleRepository(&config.PebbleConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, repo.Accounts().Save(ctx, &storage.AccountModel{Pubkey: "acc", Owner: "owner", Lamports: 9}))
	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close())
	require.ErrorIs(t, repo.Ping(ctx), ErrDBClosed)

	repo, err = NewPebbleRepository(&config.PebbleConfig{Path: path})
	require.NoError(t, err)
	defer repo.Close()
	got, err := repo.Accounts().FindByPubkey(ctx, "acc")
	require.NoError(t, err)
	require.Equal(t, uint64(9), got.Lamports)
}

func TestPebbleFactoryRegistered(t *testing.T) {
	cm, err := storage.NewConnectionManager(&config.DatabaseConfig{
		Enabled: true,
		Type:    string(storage.DatabaseTypePebble),
		Pebble:  config.PebbleConfig{Path: filepath.Join(t.TempDir(), "journal")},
	})
	require.NoError(t, err)
	repo, err := cm.Connect(context.Background())
	require.NoError(t, err)
	require.IsType(t, &PebbleRepository{}, repo)
	require.NoError(t, cm.Close())
}

func TestPebbleRequiresPath(t *testing.T) {
	_, err := NewPebbleRepository(&config.PebbleConfig{})
	require.Error(t, err)
}

func TestPrefixEnd(t *testing.T) {
	require.Equal(t, []byte("b"), prefixEnd([]byte("a")))
	require.Equal(t, []byte("b"), prefixEnd([]byte{'a', 0xff}))
	require.Nil(t, prefixEnd([]byte{0xff}))
}
