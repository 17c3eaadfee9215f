// Package keypair reads and writes ed25519 keypairs in the JSON byte-array
// layout used by the Solana CLI, e.g. program ids for the amm config.
package keypair

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
)

type Keypair struct {
	key solana.PrivateKey
}

func Generate() *Keypair {
	return &Keypair{key: solana.NewWallet().PrivateKey}
}

// FromBase58 decodes a base58 private key.
func FromBase58(s string) (*Keypair, error) {
	key, err := solana.PrivateKeyFromBase58(s)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Keypair{key: key}, nil
}

// Load reads a keypair file.
func Load(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keypair %s: %w", path, err)
	}

	// []byte would decode from base64; the file holds a list of numbers.
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, fmt.Errorf("failed to parse keypair %s: %w", path, err)
	}
	if len(ints) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid keypair size in %s: expected %d, got %d", path, ed25519.PrivateKeySize, len(ints))
	}
	raw := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("invalid keypair byte %d at offset %d in %s", v, i, path)
		}
		raw[i] = uint8(v)
	}

	derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	if !derived.Equal(ed25519.PrivateKey(raw)) {
		return nil, fmt.Errorf("keypair %s: public half does not match the seed", path)
	}
	return &Keypair{key: solana.PrivateKey(raw)}, nil
}

// Save writes the keypair to path with owner-only permissions.
func (k *Keypair) Save(path string) error {
	ints := make([]int, len(k.key))
	for i, b := range k.key {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	if err != nil {
		return fmt.Errorf("failed to encode keypair: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write keypair %s: %w", path, err)
	}
	return nil
}

func (k *Keypair) PublicKey() solana.PublicKey {
	return k.key.PublicKey()
}

func (k *Keypair) PrivateKey() solana.PrivateKey {
	return k.key
}

func (k *Keypair) String() string {
	return k.PublicKey().String()
}
