package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"

	"github.com/lugondev/go-amm/internal/authority"
	"github.com/lugondev/go-amm/internal/common"
	amerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/instruction"
	"github.com/lugondev/go-amm/internal/metrics"
	"github.com/lugondev/go-amm/internal/processor"
	"github.com/lugondev/go-amm/internal/runtime"
	"github.com/lugondev/go-amm/internal/state"
	"github.com/lugondev/go-amm/internal/storage"
	"github.com/lugondev/go-amm/pkg/types"
	"github.com/lugondev/go-amm/pkg/view"
)

// CodeUnclassified is reported for failures that carry no taxonomy code.
const CodeUnclassified = "UNCLASSIFIED"

type Runner struct {
	common.LoggerMixin
	programID types.Pubkey
	rent      runtime.Rent
	unixTime  int64
	metrics   *metrics.Collection
	journal   *storage.Journal
}

type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.SetLogger(common.Component(logger, "scenario"))
		}
	}
}

func WithProgramID(id types.Pubkey) Option {
	return func(r *Runner) {
		if !id.IsZero() {
			r.programID = id
		}
	}
}

func WithRent(rent runtime.Rent) Option {
	return func(r *Runner) { r.rent = rent }
}

// WithUnixTimestamp sets the clock for scenarios that do not set their own.
// Zero means wall-clock time at the start of each run.
func WithUnixTimestamp(unix int64) Option {
	return func(r *Runner) { r.unixTime = unix }
}

func WithMetrics(m *metrics.Collection) Option {
	return func(r *Runner) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithJournal records every invocation and the final accounts of each run.
func WithJournal(j *storage.Journal) Option {
	return func(r *Runner) { r.journal = j }
}

func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		LoggerMixin: common.NewLoggerMixin(nil, "scenario"),
		programID:   processor.DefaultProgramID,
		rent:        runtime.DefaultRent(),
		metrics:     metrics.NewCollection(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StepResult is the outcome of one step.
type StepResult struct {
	Index      int    `json:"index"`
	Op         string `json:"op"`
	Invocation string `json:"invocation,omitempty"`
	Code       string `json:"code,omitempty"`
	Expected   string `json:"expected,omitempty"`
	Passed     bool   `json:"passed"`
	Message    string `json:"message,omitempty"`
}

type Result struct {
	Name     string            `json:"name"`
	Path     string            `json:"path,omitempty"`
	Steps    []StepResult      `json:"steps"`
	Balances map[string]uint64 `json:"balances"`
	Keys     map[string]string `json:"keys"`
}

// Passed reports whether every step met its expectations.
func (r *Result) Passed() bool {
	return len(r.Failures()) == 0
}

func (r *Result) Failures() []StepResult {
	var out []StepResult
	for _, s := range r.Steps {
		if !s.Passed {
			out = append(out, s)
		}
	}
	return out
}

// RunAll runs every scenario concurrently, each on its own bank. Results are
// returned in input order. Only setup errors abort; failed expectations are
// reported in the results.
func (r *Runner) RunAll(ctx context.Context, scenarios []*Scenario) ([]*Result, error) {
	results := make([]*Result, len(scenarios))
	g, ctx := errgroup.WithContext(ctx)
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			res, err := r.Run(ctx, sc)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", sc.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Run provisions a fresh bank for sc and executes its steps in order.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	env, err := r.provision(sc)
	if err != nil {
		return nil, err
	}

	logger := r.GetLogger().With("scenario", sc.Name)
	logger.Info("scenario started", "steps", len(sc.Steps))

	res := &Result{Name: sc.Name, Path: sc.Path, Keys: env.keyStrings()}
	for i := range sc.Steps {
		step := &sc.Steps[i]
		sr, err := r.runStep(ctx, env, sc.Name, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
		sr.Index = i + 1
		if !sr.Passed {
			logger.Warn("step failed", "step", sr.Index, "op", sr.Op, "code", sr.Code, "expected", sr.Expected, "message", sr.Message)
		}
		res.Steps = append(res.Steps, sr)
	}
	res.Balances = env.balances()

	if r.journal != nil {
		if err := r.journal.Snapshot(ctx, env.bank.Keys(), env.bank, env.bank.Clock().Slot); err != nil {
			return nil, err
		}
	}

	if err := r.metrics.RecordScenario(ctx, len(res.Failures())); err != nil {
		logger.Debug("failed to record scenario", "error", err)
	}
	logger.Info("scenario finished", "passed", res.Passed(), "failures", len(res.Failures()))
	return res, nil
}

type poolEnv struct {
	decl       Pool
	keys       instruction.PoolKeys
	configBump uint8
	lpBump     uint8
}

type env struct {
	bank    *runtime.Bank
	keys    map[string]types.Pubkey
	mints   map[string]bool
	wallets map[string]bool
	pools   map[string]*poolEnv
}

func (e *env) key(name string) (types.Pubkey, error) {
	k, ok := e.keys[name]
	if !ok {
		return types.Pubkey{}, fmt.Errorf("unknown account %q", name)
	}
	return k, nil
}

func (e *env) keyStrings() map[string]string {
	out := make(map[string]string, len(e.keys))
	for name, k := range e.keys {
		out[name] = k.String()
	}
	return out
}

// balance returns lamports for wallets, supply for mints and amount for token accounts.
func (e *env) balance(name string) (uint64, error) {
	k, err := e.key(name)
	if err != nil {
		return 0, err
	}
	switch {
	case e.wallets[name]:
		acc, ok := e.bank.Account(k)
		if !ok {
			return 0, nil
		}
		return acc.Lamports, nil
	case e.mints[name]:
		return e.bank.MintSupply(k)
	default:
		return e.bank.TokenBalance(k)
	}
}

// balances reports every name whose balance is readable.
func (e *env) balances() map[string]uint64 {
	names := make([]string, 0, len(e.keys))
	for name := range e.keys {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]uint64, len(names))
	for _, name := range names {
		if _, isPool := e.pools[name]; isPool {
			continue
		}
		if v, err := e.balance(name); err == nil {
			out[name] = v
		}
	}
	return out
}

func (r *Runner) provision(sc *Scenario) (*env, error) {
	unix := sc.UnixTimestamp
	if unix == 0 {
		unix = r.unixTime
	}
	if unix == 0 {
		unix = time.Now().Unix()
	}

	bank, err := runtime.NewBank(
		runtime.WithLogger(r.GetLogger()),
		runtime.WithMetrics(r.metrics),
		runtime.WithRent(r.rent),
		runtime.WithClock(runtime.Clock{Slot: 1, UnixTimestamp: unix}),
	)
	if err != nil {
		return nil, err
	}
	program := processor.NewProgram(r.programID, processor.WithLogger(r.GetLogger()), processor.WithMetrics(r.metrics))
	program.Register(bank)

	e := &env{
		bank:    bank,
		keys:    make(map[string]types.Pubkey),
		mints:   make(map[string]bool),
		wallets: make(map[string]bool),
		pools:   make(map[string]*poolEnv),
	}

	for _, w := range sc.Wallets {
		k := solana.NewWallet().PublicKey()
		e.keys[w.Name] = k
		e.wallets[w.Name] = true
		bank.FundSystemAccount(k, w.Lamports)
	}
	for _, m := range sc.Mints {
		k := solana.NewWallet().PublicKey()
		e.keys[m.Name] = k
		e.mints[m.Name] = true
		bank.SetMint(k, m.Decimals, k, 0)
	}

	for _, p := range sc.Pools {
		mintX, mintY := e.keys[p.MintX], e.keys[p.MintY]
		config, configBump, err := authority.FindPoolAddress(r.programID, p.Seed, mintX, mintY)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", p.Name, err)
		}
		mintLP, lpBump, err := authority.FindLPMintAddress(r.programID, config)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", p.Name, err)
		}
		vaultX, err := authority.FindVaultAddress(config, mintX)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", p.Name, err)
		}
		vaultY, err := authority.FindVaultAddress(config, mintY)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", p.Name, err)
		}
		pe := &poolEnv{
			decl: p,
			keys: instruction.PoolKeys{
				Config: config,
				MintLP: mintLP,
				VaultX: vaultX,
				VaultY: vaultY,
			},
			configBump: configBump,
			lpBump:     lpBump,
		}
		e.pools[p.Name] = pe
		e.keys[p.Name] = config
		e.keys[p.Name+".lp"] = mintLP
		e.mints[p.Name+".lp"] = true
		e.keys[p.Name+".vault_x"] = pe.keys.VaultX
		e.keys[p.Name+".vault_y"] = pe.keys.VaultY
		bank.SetTokenAccount(pe.keys.VaultX, mintX, config, 0)
		bank.SetTokenAccount(pe.keys.VaultY, mintY, config, 0)
	}

	for _, ta := range sc.TokenAccounts {
		k := solana.NewWallet().PublicKey()
		e.keys[ta.Name] = k
		bank.SetTokenAccount(k, e.keys[ta.Mint], e.keys[ta.Owner], ta.Amount)
		// Pre-funded balances of a declared mint count towards its supply.
		if e.mints[ta.Mint] && ta.Amount > 0 {
			if err := addSupply(bank, e.keys[ta.Mint], ta.Amount); err != nil {
				return nil, fmt.Errorf("token account %s: %w", ta.Name, err)
			}
		}
	}
	return e, nil
}

func addSupply(bank *runtime.Bank, mint types.Pubkey, amount uint64) error {
	acc, ok := bank.Account(mint)
	if !ok {
		// LP mints do not exist until their pool is initialized.
		return nil
	}
	mv, err := view.NewMintView(acc.Data)
	if err != nil {
		return err
	}
	supply := mv.Supply()
	if supply+amount < supply {
		return fmt.Errorf("mint supply overflows")
	}
	mv.SetSupply(supply + amount)
	bank.SetAccount(mint, acc)
	return nil
}

func (r *Runner) runStep(ctx context.Context, e *env, scenario string, st *Step) (StepResult, error) {
	sr := StepResult{Op: st.Op, Expected: st.ExpectError}

	var (
		stepErr error
		receipt *runtime.Receipt
	)
	switch st.Op {
	case OpAdvanceClock:
		e.bank.AdvanceClock(st.Seconds)
	case OpSetState:
		stepErr = e.setState(e.pools[st.Pool], st.State, r.programID)
	default:
		ix, err := e.instruction(r.programID, st)
		if err != nil {
			return sr, err
		}
		receipt, stepErr = e.bank.Execute(ctx, ix)
		if receipt == nil && stepErr != nil {
			return sr, stepErr
		}
		sr.Invocation = receipt.ID.String()
		if r.journal != nil {
			if err := r.journal.Record(ctx, scenario, receipt, e.bank); err != nil {
				return sr, err
			}
		}
	}

	if stepErr != nil {
		sr.Code = amerrors.CodeOf(stepErr)
		if sr.Code == "" {
			sr.Code = CodeUnclassified
		}
		sr.Message = stepErr.Error()
	}

	sr.Passed = sr.Code == st.ExpectError
	if !sr.Passed && sr.Message == "" {
		sr.Message = fmt.Sprintf("expected %s, succeeded", st.ExpectError)
	}
	if sr.Passed {
		if msg := e.checkBalances(st.ExpectBalances); msg != "" {
			sr.Passed = false
			sr.Message = msg
		}
	}
	return sr, nil
}

func (e *env) checkBalances(want map[string]uint64) string {
	names := make([]string, 0, len(want))
	for name := range want {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		got, err := e.balance(name)
		if err != nil {
			return fmt.Sprintf("balance of %s: %v", name, err)
		}
		if got != want[name] {
			return fmt.Sprintf("balance of %s is %d, expected %d", name, got, want[name])
		}
	}
	return ""
}

func (e *env) userKeys(p *poolEnv, st *Step) (instruction.UserKeys, error) {
	or := func(name, fallback string) string {
		if name != "" {
			return name
		}
		return fallback
	}
	var (
		uk  instruction.UserKeys
		err error
	)
	if uk.User, err = e.key(st.User); err != nil {
		return uk, err
	}
	if uk.X, err = e.key(or(st.UserX, st.User+"_"+p.decl.MintX)); err != nil {
		return uk, err
	}
	if uk.Y, err = e.key(or(st.UserY, st.User+"_"+p.decl.MintY)); err != nil {
		return uk, err
	}
	if uk.LP, err = e.key(or(st.UserLP, st.User+"_"+p.decl.Name+"_lp")); err != nil {
		return uk, err
	}
	return uk, nil
}

func (e *env) instruction(programID types.Pubkey, st *Step) (types.Instruction, error) {
	p := e.pools[st.Pool]
	if st.Op == OpInitialize {
		args := instruction.InitializeArgs{
			Seed:       p.decl.Seed,
			FeeBps:     p.decl.FeeBps,
			MintX:      e.keys[p.decl.MintX],
			MintY:      e.keys[p.decl.MintY],
			ConfigBump: p.configBump,
			LPBump:     p.lpBump,
		}
		if p.decl.Authority != "" {
			args.Authority = e.keys[p.decl.Authority]
		}
		return instruction.NewInitializeInstruction(programID, e.keys[p.decl.Initializer], p.keys.MintLP, p.keys.Config, args)
	}

	user, err := e.userKeys(p, st)
	if err != nil {
		return types.Instruction{}, err
	}
	exp := e.bank.Clock().UnixTimestamp + st.ExpiresIn

	switch st.Op {
	case OpDeposit:
		return instruction.NewDepositInstruction(programID, p.keys, user, instruction.DepositArgs{
			Amount: st.Amount, MaxX: st.MaxX, MaxY: st.MaxY, Expiration: exp,
		})
	case OpWithdraw:
		return instruction.NewWithdrawInstruction(programID, p.keys, user, instruction.WithdrawArgs{
			Amount: st.Amount, MinX: st.MinX, MinY: st.MinY, Expiration: exp,
		})
	case OpSwap:
		return instruction.NewSwapInstruction(programID, p.keys, user, instruction.SwapArgs{
			IsX: st.IsX, Amount: st.Amount, Min: st.Min, Expiration: exp,
		})
	default:
		return types.Instruction{}, fmt.Errorf("unknown op %q", st.Op)
	}
}

// setState is a privileged harness write of the pool lifecycle state.
func (e *env) setState(p *poolEnv, name string, programID types.Pubkey) error {
	s, err := state.ParseLifecycleState(name)
	if err != nil {
		return amerrors.InvalidRecordState(err.Error())
	}
	acc, ok := e.bank.Account(p.keys.Config)
	if !ok {
		return amerrors.InvalidRecordState(fmt.Sprintf("pool %s is not initialized", p.decl.Name))
	}

	info := runtime.NewAccountInfo(p.keys.Config, false, true, acc)
	pool, err := state.LoadMut(info, programID)
	if err != nil {
		return err
	}
	defer pool.Release()
	if err := pool.SetState(s); err != nil {
		return err
	}
	e.bank.SetAccount(p.keys.Config, acc)
	return nil
}
