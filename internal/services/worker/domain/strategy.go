package domain

import (
	"context"
	"fmt"
	"log"

	"github.com/johnqh/di-web/internal/services/worker/storage"
)

// cacheFirst serves a fresh cached entry, otherwise fetches and stores.
// Network failure degrades to the stale entry when one exists, then to the
// stored root document for navigations.
func (w *Worker) cacheFirst(ctx context.Context, cache storage.Cache, req Request, policy NamespacePolicy) (storage.Response, error) {
	entry, ok, err := cache.Match(ctx, req.Key())
	if err != nil {
		return storage.Response{}, fmt.Errorf("match %s: %w", req.Key(), err)
	}
	if ok && !w.expired(entry, policy) {
		w.observer.CacheHit(policy.Class)
		return entry.Response, nil
	}
	w.observer.CacheMiss(policy.Class)

	res, fetchErr := w.fetchAndStore(ctx, cache, req, policy)
	if fetchErr == nil {
		return res, nil
	}
	if ok {
		log.Printf("worker serving stale %s after network failure: %v", req.Key(), fetchErr)
		return entry.Response, nil
	}
	if req.AcceptsHTML() {
		if fallback, found := w.fallbackDocument(ctx); found {
			log.Printf("worker serving fallback document for %s: %v", req.Key(), fetchErr)
			return fallback, nil
		}
	}
	return storage.Response{}, fetchErr
}

// networkFirst fetches and stores, degrading to the cached entry regardless
// of age, then to the stored root document for HTML-accepting requests.
func (w *Worker) networkFirst(ctx context.Context, cache storage.Cache, req Request, policy NamespacePolicy) (storage.Response, error) {
	res, fetchErr := w.fetchAndStore(ctx, cache, req, policy)
	if fetchErr == nil {
		return res, nil
	}

	entry, ok, err := cache.Match(ctx, req.Key())
	if err != nil {
		return storage.Response{}, fmt.Errorf("match %s: %w", req.Key(), err)
	}
	if ok {
		w.observer.CacheHit(policy.Class)
		log.Printf("worker serving cached %s after network failure: %v", req.Key(), fetchErr)
		return entry.Response, nil
	}
	if req.AcceptsHTML() {
		if fallback, found := w.fallbackDocument(ctx); found {
			log.Printf("worker serving fallback document for %s: %v", req.Key(), fetchErr)
			return fallback, nil
		}
	}
	return storage.Response{}, fetchErr
}

// staleWhileRevalidate serves any cached entry immediately while a tracked
// background fetch refreshes the bucket. Without a cached entry the network
// result is awaited.
func (w *Worker) staleWhileRevalidate(ctx context.Context, cache storage.Cache, req Request, policy NamespacePolicy) (storage.Response, error) {
	entry, ok, err := cache.Match(ctx, req.Key())
	if err != nil {
		return storage.Response{}, fmt.Errorf("match %s: %w", req.Key(), err)
	}
	if ok {
		w.observer.CacheHit(policy.Class)
		w.Track(func() {
			if _, err := w.fetchAndStore(context.Background(), cache, req, policy); err != nil {
				log.Printf("worker revalidate %s: %v", req.Key(), err)
			}
		})
		return entry.Response, nil
	}
	w.observer.CacheMiss(policy.Class)
	return w.fetchAndStore(ctx, cache, req, policy)
}

// fetchAndStore performs the network fetch and stores 2xx responses under
// the request key. Store failures degrade to serving without caching.
func (w *Worker) fetchAndStore(ctx context.Context, cache storage.Cache, req Request, policy NamespacePolicy) (storage.Response, error) {
	res, err := w.fetcher.Fetch(ctx, req)
	if err != nil {
		return storage.Response{}, fmt.Errorf("fetch %s: %w", req.Key(), err)
	}
	w.observer.NetworkFetch(policy.Class)
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		if err := cache.Put(ctx, req.Key(), res, w.nowUTC()); err != nil {
			log.Printf("worker store %s: %v", req.Key(), err)
		}
	}
	return res, nil
}

// fallbackDocument returns the stored root document, preferring the static
// bucket over the dynamic one.
func (w *Worker) fallbackDocument(ctx context.Context) (storage.Response, bool) {
	for _, class := range []NamespaceClass{ClassStatic, ClassDynamic} {
		cache, err := w.openClass(ctx, class)
		if err != nil {
			log.Printf("worker fallback lookup: %v", err)
			continue
		}
		entry, ok, err := cache.Match(ctx, "/")
		if err != nil {
			log.Printf("worker fallback lookup: %v", err)
			continue
		}
		if ok {
			return entry.Response, true
		}
	}
	return storage.Response{}, false
}
