// Package dedup remembers which entities a run has already claimed.
package dedup

import "context"

// Store claims entity keys. Claim reports true exactly once per key for the
// lifetime of a run; every later call for the same key reports false.
// Claim may return true together with an error when the key was claimed but
// bookkeeping after the claim failed; the caller owns the key in that case.
type Store interface {
	Claim(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context) error
}
