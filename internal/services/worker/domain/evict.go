package domain

import (
	"context"
	"fmt"

	"github.com/johnqh/di-web/internal/services/worker/storage"
)

// expired reports whether an entry's age strictly exceeds the policy TTL.
// An entry without a stored-at time never expires; age equal to the TTL is
// still fresh.
func (w *Worker) expired(entry storage.Entry, policy NamespacePolicy) bool {
	if entry.StoredAt.IsZero() || policy.TTL <= 0 {
		return false
	}
	return w.nowUTC().Sub(entry.StoredAt) > policy.TTL
}

// trim deletes oldest-inserted entries until the bucket is within bound.
// The live key set is re-read on every iteration so concurrent writers are
// tolerated rather than assumed away.
func (w *Worker) trim(ctx context.Context, cache storage.Cache, policy NamespacePolicy) error {
	if policy.MaxEntries <= 0 {
		return nil
	}
	for {
		keys, err := cache.Keys(ctx)
		if err != nil {
			return fmt.Errorf("list %s keys: %w", policy.Class, err)
		}
		if len(keys) <= policy.MaxEntries {
			return nil
		}
		if _, err := cache.Delete(ctx, keys[0]); err != nil {
			return fmt.Errorf("evict %s: %w", keys[0], err)
		}
		w.observer.Eviction(policy.Class)
	}
}
