// Package pebble is an embedded journal store on top of cockroachdb/pebble.
//
// Records are JSON values under prefixed keys. Secondary indexes are empty
// or id-valued keys kept in the same batch as the record they point at:
//
//	a/<pubkey>                         account
//	o/<owner>/<pubkey>                 account by owner
//	i/<id>                             invocation
//	t/<created_at:be64><id>            invocation by time
//	s/<scenario>\x00<created_at:be64><id>  invocation by scenario
package pebble

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/lugondev/go-amm/internal/config"
	"github.com/lugondev/go-amm/internal/storage"
)

var ErrDBClosed = errors.New("database is closed")

func init() {
	storage.RegisterPebbleFactory(func(ctx context.Context, cfg *config.PebbleConfig) (storage.Repository, error) {
		repo, err := NewPebbleRepository(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pebble repository: %w", err)
		}
		return repo, nil
	})
}

type PebbleRepository struct {
	db             *pebble.DB
	accountRepo    *pebbleAccountRepository
	invocationRepo *pebbleInvocationRepository
}

func NewPebbleRepository(cfg *config.PebbleConfig) (*PebbleRepository, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("pebble path is required")
	}
	db, err := pebble.Open(cfg.Path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", cfg.Path, err)
	}

	repo := &PebbleRepository{db: db}
	repo.accountRepo = &pebbleAccountRepository{repo: repo}
	repo.invocationRepo = &pebbleInvocationRepository{repo: repo}
	return repo, nil
}

func (r *PebbleRepository) Accounts() storage.AccountRepository {
	return r.accountRepo
}

func (r *PebbleRepository) Invocations() storage.InvocationRepository {
	return r.invocationRepo
}

func (r *PebbleRepository) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *PebbleRepository) Ping(ctx context.Context) error {
	if r.db == nil {
		return ErrDBClosed
	}
	return ctx.Err()
}

// get decodes the value under key into v. found is false when the key is absent.
func (r *PebbleRepository) get(key []byte, v any) (found bool, err error) {
	if r.db == nil {
		return false, ErrDBClosed
	}
	val, closer, err := r.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	defer closer.Close()

	if err := json.Unmarshal(val, v); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

// scan calls fn with the key and a copy of the value of every entry under
// prefix, in key order, until fn returns false.
func (r *PebbleRepository) scan(prefix []byte, reverse bool, fn func(key, value []byte) (bool, error)) error {
	if r.db == nil {
		return ErrDBClosed
	}
	iter, err := r.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixEnd(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	valid := iter.First()
	if reverse {
		valid = iter.Last()
	}
	for ; valid; valid = step(iter, reverse) {
		key := append([]byte(nil), iter.Key()...)
		value := append([]byte(nil), iter.Value()...)
		more, err := fn(key, value)
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return iter.Error()
}

func step(iter *pebble.Iterator, reverse bool) bool {
	if reverse {
		return iter.Prev()
	}
	return iter.Next()
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func key(parts ...string) []byte {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func be64(v int64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	return string(buf[:])
}
