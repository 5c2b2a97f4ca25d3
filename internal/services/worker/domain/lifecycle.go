package domain

import (
	"context"
	"fmt"
	"log"
)

// HandleInstall precaches the critical resource set into the current static
// bucket and requests immediate activation. Any precache failure fails the
// install.
func (w *Worker) HandleInstall(ctx context.Context) error {
	if w == nil {
		return fmt.Errorf("worker is nil")
	}
	w.eventMu.Lock()
	defer w.eventMu.Unlock()

	cache, err := w.openClass(ctx, ClassStatic)
	if err != nil {
		return err
	}
	for _, path := range w.precache {
		req, err := NewRequest("GET", path, nil, nil)
		if err != nil {
			return fmt.Errorf("precache %s: %w", path, err)
		}
		res, err := w.fetcher.Fetch(ctx, req)
		if err != nil {
			return fmt.Errorf("precache %s: %w", path, err)
		}
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			return fmt.Errorf("precache %s: unexpected status %d", path, res.StatusCode)
		}
		if err := cache.Put(ctx, req.Key(), res, w.nowUTC()); err != nil {
			return fmt.Errorf("precache %s: %w", path, err)
		}
	}
	log.Printf("worker %s installed, precached %d resources", w.spaces.Version, len(w.precache))

	if w.skipWaiting != nil {
		w.skipWaiting()
	}
	return nil
}

// HandleActivate purges stale and legacy buckets, claims all open clients,
// and returns the number of purged buckets. On an already-clean set nothing
// is purged.
func (w *Worker) HandleActivate(ctx context.Context) (int, error) {
	if w == nil {
		return 0, fmt.Errorf("worker is nil")
	}
	w.eventMu.Lock()
	defer w.eventMu.Unlock()

	names, err := w.store.Names(ctx)
	if err != nil {
		return 0, fmt.Errorf("list buckets: %w", err)
	}
	purged := 0
	for _, name := range names {
		if !w.spaces.Stale(name) && !Legacy(name) {
			continue
		}
		existed, err := w.store.Delete(ctx, name)
		if err != nil {
			return purged, fmt.Errorf("purge bucket %s: %w", name, err)
		}
		if existed {
			purged++
			log.Printf("worker purged bucket %s", name)
		}
	}

	if w.clients != nil {
		if err := w.clients.Claim(ctx); err != nil {
			return purged, fmt.Errorf("claim clients: %w", err)
		}
	}
	log.Printf("worker %s activated, purged %d buckets", w.spaces.Version, purged)
	return purged, nil
}
