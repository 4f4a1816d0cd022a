package cache

import (
	"context"
	"errors"
	"strings"

	"github.com/jonwraymond/toolproxy/invocation"
)

// MaxKeyLength bounds the keys a Layer will store under.
const MaxKeyLength = 512

const keyPrefix = "cache:"

var (
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Store holds memoized results for one pipeline.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Entries live until deleted; a Layer never evicts.
//   - Get reports a miss with ok == false and never errors.
type Store interface {
	Get(ctx context.Context, key string) (invocation.Result, bool)
	Set(ctx context.Context, key string, result invocation.Result) error
	// Delete is idempotent.
	Delete(ctx context.Context, key string) error
	Len() int
}

// ValidateKey rejects blank keys, keys containing line breaks and keys
// longer than MaxKeyLength.
func ValidateKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "", strings.ContainsAny(key, "\r\n"):
		return ErrInvalidKey
	case len(key) > MaxKeyLength:
		return ErrKeyTooLong
	}
	return nil
}
