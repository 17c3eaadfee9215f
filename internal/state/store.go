package state

import (
	"fmt"

	amerrors "github.com/lugondev/go-amm/internal/errors"
	"github.com/lugondev/go-amm/internal/runtime"
	"github.com/lugondev/go-amm/pkg/types"
)

// Pool is a shared, read-only handle on a loaded pool record. The embedded
// config is a decoded copy; Release returns the underlying capability.
type Pool struct {
	PoolConfig
	ref *runtime.Ref
}

// Release returns the shared capability.
func (p *Pool) Release() { p.ref.Release() }

// PoolMut is an exclusive handle on a pool record. Setters validate first and
// then write the whole record through to the account data.
type PoolMut struct {
	cfg PoolConfig
	ref *runtime.RefMut
}

func checkAccount(info *runtime.AccountInfo, programID types.Pubkey) error {
	if info.DataLen() != PoolConfigLen {
		return amerrors.InvalidRecordState(fmt.Sprintf("pool record must be %d bytes, got %d", PoolConfigLen, info.DataLen()))
	}
	if !info.Owner().Equals(programID) {
		return amerrors.InvalidAccountOwnership(fmt.Sprintf("pool record %s", info.Key()))
	}
	return nil
}

// Load checks length and ownership, then takes a shared capability over the record.
func Load(info *runtime.AccountInfo, programID types.Pubkey) (*Pool, error) {
	if err := checkAccount(info, programID); err != nil {
		return nil, err
	}
	ref, err := info.Borrow()
	if err != nil {
		return nil, amerrors.BorrowFailed("pool record", err)
	}
	cfg, err := DecodePoolConfig(ref.Data())
	if err != nil {
		ref.Release()
		return nil, err
	}
	return &Pool{PoolConfig: *cfg, ref: ref}, nil
}

// LoadMut checks length and ownership, then takes an exclusive capability over the record.
func LoadMut(info *runtime.AccountInfo, programID types.Pubkey) (*PoolMut, error) {
	if err := checkAccount(info, programID); err != nil {
		return nil, err
	}
	ref, err := info.BorrowMut()
	if err != nil {
		return nil, amerrors.BorrowFailed("pool record", err)
	}
	cfg, err := DecodePoolConfig(ref.Data())
	if err != nil {
		ref.Release()
		return nil, err
	}
	return &PoolMut{cfg: *cfg, ref: ref}, nil
}

// LoadMutUnchecked checks only the length. It is meant for a record whose
// account was created moments ago in the same invocation and may still be
// zeroed; the contents are not validated.
func LoadMutUnchecked(info *runtime.AccountInfo) (*PoolMut, error) {
	if info.DataLen() != PoolConfigLen {
		return nil, amerrors.InvalidRecordState(fmt.Sprintf("pool record must be %d bytes, got %d", PoolConfigLen, info.DataLen()))
	}
	ref, err := info.BorrowMut()
	if err != nil {
		return nil, amerrors.BorrowFailed("pool record", err)
	}
	cfg, err := decodeRaw(ref.Data())
	if err != nil {
		ref.Release()
		return nil, err
	}
	return &PoolMut{cfg: *cfg, ref: ref}, nil
}

// Config returns a copy of the current record.
func (p *PoolMut) Config() PoolConfig { return p.cfg }

// Release returns the exclusive capability.
func (p *PoolMut) Release() { p.ref.Release() }

// SetState moves the pool to s. Values beyond WithdrawOnly are rejected.
func (p *PoolMut) SetState(s LifecycleState) error {
	if !s.Valid() {
		return amerrors.InvalidRecordState(fmt.Sprintf("lifecycle state %d out of range", uint8(s)))
	}
	next := p.cfg
	next.State = s
	return p.write(next)
}

// SetFee replaces the swap fee. Fees of MaxFeeBps or more are rejected.
func (p *PoolMut) SetFee(feeBps uint16) error {
	if feeBps >= MaxFeeBps {
		return amerrors.InvalidRecordState(fmt.Sprintf("fee %d bps must be below %d", feeBps, MaxFeeBps))
	}
	next := p.cfg
	next.FeeBps = feeBps
	return p.write(next)
}

// SetAuthority replaces the admin authority. A zero key removes it.
func (p *PoolMut) SetAuthority(authority types.Pubkey) error {
	next := p.cfg
	next.Authority = authority
	return p.write(next)
}

// SetInner writes a fresh Initialized record. Nothing is written when fee is
// out of range.
func (p *PoolMut) SetInner(seed uint64, authority, mintX, mintY types.Pubkey, feeBps uint16, bump uint8) error {
	next := PoolConfig{
		State:     Initialized,
		Seed:      seed,
		Authority: authority,
		MintX:     mintX,
		MintY:     mintY,
		FeeBps:    feeBps,
		Bump:      bump,
	}
	return p.write(next)
}

func (p *PoolMut) write(next PoolConfig) error {
	if err := next.Validate(); err != nil {
		return err
	}
	data, err := next.Encode()
	if err != nil {
		return amerrors.InvalidRecordState("encode pool record").WithCause(err)
	}
	copy(p.ref.Data(), data)
	p.cfg = next
	return nil
}
