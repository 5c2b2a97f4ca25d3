// Package memory provides an in-memory cache store with the same semantics
// as the SQLite store. It backs tests and ephemeral gateway runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/johnqh/di-web/internal/services/worker/storage"
)

// Store keeps cache buckets in process memory.
type Store struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	closed  bool
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{buckets: make(map[string]*bucket)}
}

// Open returns the bucket stored under name, creating it when absent.
func (s *Store) Open(ctx context.Context, name string) (storage.Cache, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("storage is closed")
	}
	b, ok := s.buckets[name]
	if !ok {
		b = &bucket{entries: make(map[string]storage.Entry)}
		s.buckets[name] = b
	}
	return b, nil
}

// Delete removes a bucket and its entries, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return false, fmt.Errorf("bucket name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, fmt.Errorf("storage is closed")
	}
	_, ok := s.buckets[name]
	delete(s.buckets, name)
	return ok, nil
}

// Names returns all bucket names in lexical order.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("storage is closed")
	}
	names := make([]string, 0, len(s.buckets))
	for name := range s.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close marks the store closed.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// bucket holds entries plus their insertion order.
type bucket struct {
	mu      sync.Mutex
	order   []string
	entries map[string]storage.Entry
}

// Match returns the entry stored under key, reporting whether one exists.
func (b *bucket) Match(ctx context.Context, key string) (storage.Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return storage.Entry{}, false, err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return storage.Entry{}, false, fmt.Errorf("request key is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.entries[key]
	if !ok {
		return storage.Entry{}, false, nil
	}
	entry.Response = entry.Response.Clone()
	return entry, true, nil
}

// Put stores res under key, appending new keys and refreshing existing ones
// in place so the insertion position is preserved.
func (b *bucket) Put(ctx context.Context, key string, res storage.Response, storedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("request key is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[key]; !ok {
		b.order = append(b.order, key)
	}
	b.entries[key] = storage.Entry{Key: key, Response: res.Clone(), StoredAt: storedAt}
	return nil
}

// Delete removes the entry under key, reporting whether one existed.
func (b *bucket) Delete(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return false, fmt.Errorf("request key is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[key]; !ok {
		return false, nil
	}
	delete(b.entries, key)
	for i, existing := range b.order {
		if existing == key {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// Keys returns all keys in insertion order, oldest first.
func (b *bucket) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, len(b.order))
	copy(keys, b.order)
	return keys, nil
}

// Len returns the live entry count.
func (b *bucket) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries), nil
}

var _ storage.Storage = (*Store)(nil)
var _ storage.Cache = (*bucket)(nil)
