package runtime

import (
	"fmt"
	"sync"

	"github.com/lugondev/go-amm/pkg/types"
)

// Grant records one capability issued over an account's data during an invocation.
// Acquired and Released are positions on the invocation's grant clock; Released
// is zero while the capability is still held.
type Grant struct {
	Account   types.Pubkey `json:"account"`
	Holder    string       `json:"holder"`
	Exclusive bool         `json:"exclusive"`
	Acquired  uint64       `json:"acquired"`
	Released  uint64       `json:"released"`
}

func (g Grant) overlaps(o Grant) bool {
	return g.Acquired < o.Released && o.Acquired < g.Released
}

// OverlappingExclusive returns the accounts for which an exclusive grant was
// alive at the same time as any other grant on that account.
func OverlappingExclusive(grants []Grant) []types.Pubkey {
	var (
		out  []types.Pubkey
		seen = make(map[types.Pubkey]bool)
	)
	for i := range grants {
		for j := i + 1; j < len(grants); j++ {
			a, b := grants[i], grants[j]
			if !a.Account.Equals(b.Account) || (!a.Exclusive && !b.Exclusive) {
				continue
			}
			if a.overlaps(b) && !seen[a.Account] {
				seen[a.Account] = true
				out = append(out, a.Account)
			}
		}
	}
	return out
}

type slot struct {
	shared    int
	exclusive bool
}

// arbiter hands out data capabilities for one invocation.
type arbiter struct {
	mu      sync.Mutex
	clock   uint64
	slots   map[types.Pubkey]*slot
	grants  []*Grant
	holders []string
}

func newArbiter(holder string) *arbiter {
	return &arbiter{
		slots:   make(map[types.Pubkey]*slot),
		holders: []string{holder},
	}
}

// enter makes holder the owner of new grants until the returned func is called.
func (a *arbiter) enter(holder string) func() {
	a.mu.Lock()
	a.holders = append(a.holders, holder)
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		a.holders = a.holders[:len(a.holders)-1]
		a.mu.Unlock()
	}
}

func (a *arbiter) acquire(key types.Pubkey, exclusive bool) (*Grant, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.slots[key]
	if !ok {
		s = &slot{}
		a.slots[key] = s
	}
	if s.exclusive || (exclusive && s.shared > 0) {
		return nil, fmt.Errorf("%w: %s", ErrAccountBorrowFailed, key)
	}
	if exclusive {
		s.exclusive = true
	} else {
		s.shared++
	}

	a.clock++
	g := &Grant{
		Account:   key,
		Holder:    a.holders[len(a.holders)-1],
		Exclusive: exclusive,
		Acquired:  a.clock,
	}
	a.grants = append(a.grants, g)
	return g, nil
}

func (a *arbiter) release(g *Grant) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if g.Released != 0 {
		return ErrCapabilityNotHeld
	}
	s := a.slots[g.Account]
	if g.Exclusive {
		s.exclusive = false
	} else {
		s.shared--
	}
	a.clock++
	g.Released = a.clock
	return nil
}

// close releases every outstanding grant and returns the journal.
func (a *arbiter) close() []Grant {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.clock++
	out := make([]Grant, len(a.grants))
	for i, g := range a.grants {
		if g.Released == 0 {
			g.Released = a.clock
		}
		out[i] = *g
	}
	a.slots = make(map[types.Pubkey]*slot)
	return out
}

// AccountInfo is the view of one account handed to a program. Metadata is
// readable at any time; data requires a capability from Borrow or BorrowMut.
type AccountInfo struct {
	key      types.Pubkey
	signer   bool
	writable bool
	account  *types.Account
	arbiter  *arbiter
}

// NewAccountInfo wraps account outside of any invocation. Capabilities over it
// are arbitrated independently of every other AccountInfo.
func NewAccountInfo(key types.Pubkey, signer, writable bool, account *types.Account) *AccountInfo {
	return &AccountInfo{
		key:      key,
		signer:   signer,
		writable: writable,
		account:  account,
		arbiter:  newArbiter("standalone"),
	}
}

// Key returns the account address.
func (i *AccountInfo) Key() types.Pubkey { return i.key }

// IsSigner reports whether the transaction signed for the account.
func (i *AccountInfo) IsSigner() bool { return i.signer }

// IsWritable reports whether the account may be mutated.
func (i *AccountInfo) IsWritable() bool { return i.writable }

// Owner returns the owning program.
func (i *AccountInfo) Owner() types.Pubkey { return i.account.Owner }

// Lamports returns the account balance.
func (i *AccountInfo) Lamports() uint64 { return i.account.Lamports }

// DataLen returns the length of the account data.
func (i *AccountInfo) DataLen() int { return len(i.account.Data) }

// Borrow acquires a shared capability over the account data.
func (i *AccountInfo) Borrow() (*Ref, error) {
	g, err := i.arbiter.acquire(i.key, false)
	if err != nil {
		return nil, err
	}
	return &Ref{info: i, grant: g}, nil
}

// BorrowMut acquires an exclusive capability over the account.
func (i *AccountInfo) BorrowMut() (*RefMut, error) {
	if !i.writable {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotWritable, i.key)
	}
	g, err := i.arbiter.acquire(i.key, true)
	if err != nil {
		return nil, err
	}
	return &RefMut{info: i, grant: g}, nil
}

// Ref is a shared data capability. The slice from Data must not be modified.
type Ref struct {
	info  *AccountInfo
	grant *Grant
}

// Data returns the account data.
func (r *Ref) Data() []byte { return r.info.account.Data }

// Release returns the capability. Releasing twice is a no-op.
func (r *Ref) Release() { _ = r.info.arbiter.release(r.grant) }

// RefMut is an exclusive capability over data, lamports and owner.
type RefMut struct {
	info  *AccountInfo
	grant *Grant
}

// Data returns the mutable account data.
func (r *RefMut) Data() []byte { return r.info.account.Data }

// Release returns the capability. Releasing twice is a no-op.
func (r *RefMut) Release() { _ = r.info.arbiter.release(r.grant) }

func (r *RefMut) setLamports(v uint64) { r.info.account.Lamports = v }

func (r *RefMut) assign(owner types.Pubkey) { r.info.account.Owner = owner }

func (r *RefMut) allocate(space uint64) { r.info.account.Data = make([]byte, space) }
