package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Keyer turns a target and its ordered argument values into a cache key.
//
// Contract:
//   - Equal inputs give equal keys, whatever the map iteration order.
//   - Concurrency: safe for concurrent use.
type Keyer interface {
	Key(target string, values []any) (string, error)
}

// DefaultKeyer hashes the JSON encoding of the value sequence.
//
// Only values take part in the key, never parameter names: calls whose
// value sequences are equal share an entry even when the values were passed
// under different names. Values that encode to the same JSON (for example
// the integer 100 and the float 100.0) also share an entry.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key returns cache:<target>:<hash>, where hash is the first 16 hex digits
// of SHA-256 over the JSON array of values. encoding/json writes map keys in
// sorted order, which keeps nested maps deterministic.
func (k *DefaultKeyer) Key(target string, values []any) (string, error) {
	if values == nil {
		values = []any{}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("cache: encode arguments for %s: %w", target, err)
	}
	sum := sha256.Sum256(encoded)
	return keyPrefix + target + ":" + hex.EncodeToString(sum[:8]), nil
}

var _ Keyer = (*DefaultKeyer)(nil)
