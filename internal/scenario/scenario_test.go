package scenario

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	amerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/metrics"
	"github.com/lugondev/go-amm/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadBasic(t *testing.T) *Scenario {
	t.Helper()
	sc, err := Load(filepath.Join("testdata", "basic.yaml"))
	require.NoError(t, err)
	return sc
}

func TestLoadBasic(t *testing.T) {
	sc := loadBasic(t)
	require.Equal(t, "basic", sc.Name)
	require.Equal(t, filepath.Join("testdata", "basic.yaml"), sc.Path)
	require.Len(t, sc.Wallets, 2)
	require.Len(t, sc.Pools, 1)
	require.Len(t, sc.Steps, 10)
	require.Equal(t, OpSwap, sc.Steps[2].Op)
	require.True(t, sc.Steps[2].IsX)
	require.Equal(t, int64(-1), sc.Steps[4].ExpiresIn)
}

func TestRunBasic(t *testing.T) {
	counts := metrics.NewLogMetrics(quietLogger())
	repo := storage.NewMemoryRepository()
	runner := NewRunner(
		WithLogger(quietLogger()),
		WithMetrics(metrics.NewCollection(counts)),
		WithJournal(storage.NewJournal(repo, quietLogger())),
	)

	res, err := runner.Run(context.Background(), loadBasic(t))
	require.NoError(t, err)
	require.Empty(t, res.Failures())
	require.True(t, res.Passed())
	require.Len(t, res.Steps, 10)

	require.Equal(t, amerrors.ErrCodeSlippageExceeded, res.Steps[3].Code)
	require.Equal(t, amerrors.ErrCodeExpiredRequest, res.Steps[4].Code)
	require.Equal(t, amerrors.ErrCodeWrongLifecyclePhase, res.Steps[6].Code)
	require.Empty(t, res.Steps[5].Invocation)
	require.NotEmpty(t, res.Steps[0].Invocation)

	require.Equal(t, uint64(1_000_100), res.Balances["alice_usdc"])
	require.Equal(t, uint64(0), res.Balances["main.lp"])
	require.Contains(t, res.Keys, "main.vault_x")

	require.Equal(t, uint64(1), counts.Counter(metrics.ScenariosRun))
	require.Zero(t, counts.Counter(metrics.ScenariosFailed))

	invocations, err := repo.Invocations().FindByScenario(context.Background(), "basic", 0, 0)
	require.NoError(t, err)
	require.Len(t, invocations, 7)
	require.Equal(t, "initialize", invocations[0].Operation)
	require.False(t, invocations[3].Success)

	vault, err := repo.Accounts().FindByPubkey(context.Background(), res.Keys["main.vault_x"])
	require.NoError(t, err)
	require.NotNil(t, vault)
}

func TestRunReportsUnmetExpectations(t *testing.T) {
	sc := loadBasic(t)
	sc.Steps[2].ExpectError = amerrors.ErrCodeSlippageExceeded
	sc.Steps[1].ExpectBalances["main.lp"] = 999

	counts := metrics.NewLogMetrics(quietLogger())
	res, err := NewRunner(WithLogger(quietLogger()), WithMetrics(metrics.NewCollection(counts))).
		Run(context.Background(), sc)
	require.NoError(t, err)
	require.False(t, res.Passed())

	failures := res.Failures()
	require.Len(t, failures, 2)
	require.Equal(t, 2, failures[0].Index)
	require.Contains(t, failures[0].Message, "main.lp")
	require.Equal(t, 3, failures[1].Index)
	require.Contains(t, failures[1].Message, "succeeded")
	require.Equal(t, uint64(1), counts.Counter(metrics.ScenariosFailed))
	require.Equal(t, uint64(2), counts.Counter(metrics.ScenarioStepsFailed))
}

func TestRunAllIsolatesBanks(t *testing.T) {
	first, second := loadBasic(t), loadBasic(t)
	second.Name = "basic-2"

	results, err := NewRunner(WithLogger(quietLogger())).RunAll(context.Background(), []*Scenario{first, second})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "basic", results[0].Name)
	require.Equal(t, "basic-2", results[1].Name)
	for _, res := range results {
		require.True(t, res.Passed(), res.Name)
	}
	require.NotEqual(t, results[0].Keys["alice"], results[1].Keys["alice"])
}

func TestRunMissingUserAccountIsSetupError(t *testing.T) {
	sc := loadBasic(t)
	sc.Steps[1].UserLP = "nobody_lp"
	_, err := NewRunner(WithLogger(quietLogger())).Run(context.Background(), sc)
	require.ErrorContains(t, err, "nobody_lp")
}

func TestSetStateRequiresInitializedPool(t *testing.T) {
	sc, err := Parse([]byte(`
name: early
wallets: [{ name: w, lamports: 1000000000 }]
mints: [{ name: a, decimals: 6 }, { name: b, decimals: 6 }]
pools: [{ name: p, seed: 7, fee_bps: 0, mint_x: a, mint_y: b, initializer: w }]
steps:
  - { op: set_state, pool: p, state: disabled, expect_error: INVALID_RECORD_STATE }
  - { op: initialize, pool: p }
  - { op: set_state, pool: p, state: paused, expect_error: INVALID_RECORD_STATE }
  - { op: set_state, pool: p, state: disabled }
`))
	require.NoError(t, err)

	res, err := NewRunner(WithLogger(quietLogger()), WithUnixTimestamp(1_700_000_000)).Run(context.Background(), sc)
	require.NoError(t, err)
	require.Empty(t, res.Failures())
}

func TestParseRejections(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unknown field",
			doc:  "name: x\nbogus: 1\n",
			want: "bogus",
		},
		{
			name: "duplicate name",
			doc:  "wallets: [{ name: a }]\nmints: [{ name: a }]\n",
			want: "already declared",
		},
		{
			name: "unknown mint",
			doc:  "wallets: [{ name: w }]\ntoken_accounts: [{ name: t, mint: nope, owner: w }]\n",
			want: `unknown mint "nope"`,
		},
		{
			name: "owner is not a wallet",
			doc:  "mints: [{ name: m }]\ntoken_accounts: [{ name: t, mint: m, owner: m }]\n",
			want: "not a wallet",
		},
		{
			name: "unknown op",
			doc:  "steps: [{ op: teleport }]\n",
			want: `unknown op "teleport"`,
		},
		{
			name: "step without pool",
			doc:  "wallets: [{ name: w }]\nsteps: [{ op: deposit, user: w }]\n",
			want: "unknown pool",
		},
		{
			name: "derived name clash",
			doc: "wallets: [{ name: w }]\nmints: [{ name: a }, { name: b }, { name: p.lp }]\n" +
				"pools: [{ name: p, mint_x: a, mint_y: b, initializer: w }]\n",
			want: "already declared",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.ErrorContains(t, err, tt.want)
		})
	}
}
