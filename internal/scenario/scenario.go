// Package scenario runs scripted pool simulations against an in-process bank.
//
// A scenario file declares wallets, mints, token accounts and pools by name,
// then a list of steps. Each step is executed as one instruction (or one
// harness action) and may assert the error code it must fail with and the
// balances it must leave behind. Pools expose derived names:
//
//	<pool>.lp        LP mint
//	<pool>.vault_x   X vault
//	<pool>.vault_y   Y vault
package scenario

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Step operations.
const (
	OpInitialize   = "initialize"
	OpDeposit      = "deposit"
	OpWithdraw     = "withdraw"
	OpSwap         = "swap"
	OpAdvanceClock = "advance_clock"
	OpSetState     = "set_state"
)

type Scenario struct {
	Name          string         `yaml:"name"`
	UnixTimestamp int64          `yaml:"unix_timestamp"`
	Wallets       []Wallet       `yaml:"wallets"`
	Mints         []Mint         `yaml:"mints"`
	TokenAccounts []TokenAccount `yaml:"token_accounts"`
	Pools         []Pool         `yaml:"pools"`
	Steps         []Step         `yaml:"steps"`

	// Path is the file the scenario was loaded from, if any.
	Path string `yaml:"-"`
}

type Wallet struct {
	Name     string `yaml:"name"`
	Lamports uint64 `yaml:"lamports"`
}

type Mint struct {
	Name     string `yaml:"name"`
	Decimals uint8  `yaml:"decimals"`
}

// TokenAccount is a token account to provision. Mint may name a declared
// mint or a pool's LP mint ("<pool>.lp").
type TokenAccount struct {
	Name   string `yaml:"name"`
	Mint   string `yaml:"mint"`
	Owner  string `yaml:"owner"`
	Amount uint64 `yaml:"amount"`
}

type Pool struct {
	Name        string `yaml:"name"`
	Seed        uint64 `yaml:"seed"`
	FeeBps      uint16 `yaml:"fee_bps"`
	MintX       string `yaml:"mint_x"`
	MintY       string `yaml:"mint_y"`
	Initializer string `yaml:"initializer"`
	// Authority names a wallet recorded as the pool authority. Empty means none.
	Authority string `yaml:"authority"`
}

type Step struct {
	Op   string `yaml:"op"`
	Pool string `yaml:"pool"`

	// User and its token accounts. When UserX, UserY or UserLP are empty they
	// default to "<user>_<mint_x>", "<user>_<mint_y>" and "<user>_<pool>_lp".
	User   string `yaml:"user"`
	UserX  string `yaml:"user_x"`
	UserY  string `yaml:"user_y"`
	UserLP string `yaml:"user_lp"`

	Amount uint64 `yaml:"amount"`
	MaxX   uint64 `yaml:"max_x"`
	MaxY   uint64 `yaml:"max_y"`
	MinX   uint64 `yaml:"min_x"`
	MinY   uint64 `yaml:"min_y"`
	Min    uint64 `yaml:"min"`
	IsX    bool   `yaml:"is_x"`

	// ExpiresIn is added to the bank clock to form the expiration timestamp.
	ExpiresIn int64 `yaml:"expires_in"`

	Seconds int64  `yaml:"seconds"`
	State   string `yaml:"state"`

	ExpectError    string            `yaml:"expect_error"`
	ExpectBalances map[string]uint64 `yaml:"expect_balances"`
}

// Parse decodes a scenario document. Unknown fields are rejected.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Load reads and parses the scenario at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sc.Path = path
	if sc.Name == "" {
		sc.Name = path
	}
	return sc, nil
}

// Validate checks that names are unique and every reference resolves.
func (s *Scenario) Validate() error {
	names := make(map[string]string)
	declare := func(kind, name string) error {
		if name == "" {
			return fmt.Errorf("%s without a name", kind)
		}
		if prev, ok := names[name]; ok {
			return fmt.Errorf("%s %q already declared as %s", kind, name, prev)
		}
		names[name] = kind
		return nil
	}
	expect := func(kind, name string, want ...string) error {
		got, ok := names[name]
		if !ok {
			return fmt.Errorf("unknown %s %q", kind, name)
		}
		for _, w := range want {
			if got == w {
				return nil
			}
		}
		return fmt.Errorf("%q is a %s, not a %s", name, got, kind)
	}

	for _, w := range s.Wallets {
		if err := declare("wallet", w.Name); err != nil {
			return err
		}
	}
	for _, m := range s.Mints {
		if err := declare("mint", m.Name); err != nil {
			return err
		}
	}
	for _, p := range s.Pools {
		if err := declare("pool", p.Name); err != nil {
			return err
		}
		for _, derived := range []struct{ kind, name string }{
			{"mint", p.Name + ".lp"},
			{"token account", p.Name + ".vault_x"},
			{"token account", p.Name + ".vault_y"},
		} {
			if err := declare(derived.kind, derived.name); err != nil {
				return err
			}
		}
		if err := expect("mint", p.MintX, "mint"); err != nil {
			return fmt.Errorf("pool %s: %w", p.Name, err)
		}
		if err := expect("mint", p.MintY, "mint"); err != nil {
			return fmt.Errorf("pool %s: %w", p.Name, err)
		}
		if err := expect("wallet", p.Initializer, "wallet"); err != nil {
			return fmt.Errorf("pool %s: initializer: %w", p.Name, err)
		}
		if p.Authority != "" {
			if err := expect("wallet", p.Authority, "wallet"); err != nil {
				return fmt.Errorf("pool %s: authority: %w", p.Name, err)
			}
		}
	}
	for _, ta := range s.TokenAccounts {
		if err := declare("token account", ta.Name); err != nil {
			return err
		}
		if err := expect("mint", ta.Mint, "mint"); err != nil {
			return fmt.Errorf("token account %s: %w", ta.Name, err)
		}
		if err := expect("wallet", ta.Owner, "wallet"); err != nil {
			return fmt.Errorf("token account %s: owner: %w", ta.Name, err)
		}
	}

	for i, step := range s.Steps {
		if err := step.validate(expect); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
	}
	return nil
}

func (st *Step) validate(expect func(kind, name string, want ...string) error) error {
	switch st.Op {
	case OpInitialize, OpSetState:
		if err := expect("pool", st.Pool, "pool"); err != nil {
			return err
		}
	case OpDeposit, OpWithdraw, OpSwap:
		if err := expect("pool", st.Pool, "pool"); err != nil {
			return err
		}
		if err := expect("wallet", st.User, "wallet"); err != nil {
			return err
		}
	case OpAdvanceClock:
	default:
		return fmt.Errorf("unknown op %q", st.Op)
	}
	for name := range st.ExpectBalances {
		if err := expect("balance", name, "wallet", "mint", "token account"); err != nil {
			return err
		}
	}
	return nil
}
