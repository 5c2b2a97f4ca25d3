// Package storage defines persistence contracts for the worker cache and
// its operational event log.
package storage

import (
	"context"
	"net/http"
	"time"
)

// Response is the stored form of an upstream HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Clone returns a deep copy so stored bytes never alias served bytes.
func (r Response) Clone() Response {
	cloned := Response{StatusCode: r.StatusCode}
	if r.Header != nil {
		cloned.Header = r.Header.Clone()
	}
	if r.Body != nil {
		cloned.Body = make([]byte, len(r.Body))
		copy(cloned.Body, r.Body)
	}
	return cloned
}

// Entry is one cached response keyed by its request.
type Entry struct {
	Key      string
	Response Response
	StoredAt time.Time
}

// Cache is a single named bucket of entries in insertion order.
type Cache interface {
	// Match returns the entry stored under key, reporting whether one exists.
	Match(ctx context.Context, key string) (Entry, bool, error)
	// Put stores res under key. A new key appends; an existing key is
	// refreshed in place and keeps its insertion position.
	Put(ctx context.Context, key string, res Response, storedAt time.Time) error
	// Delete removes the entry under key, reporting whether one existed.
	Delete(ctx context.Context, key string) (bool, error)
	// Keys returns all keys in insertion order, oldest first.
	Keys(ctx context.Context) ([]string, error)
	// Len returns the live entry count.
	Len(ctx context.Context) (int, error)
}

// Storage manages named cache buckets.
type Storage interface {
	// Open returns the bucket stored under name, creating it when absent.
	Open(ctx context.Context, name string) (Cache, error)
	// Delete removes a bucket and its entries, reporting whether it existed.
	Delete(ctx context.Context, name string) (bool, error)
	// Names returns all bucket names.
	Names(ctx context.Context) ([]string, error)
	// Close releases underlying resources.
	Close() error
}

// EventRecord captures one operational worker event.
type EventRecord struct {
	ID        string
	Source    string
	Kind      string
	Detail    string
	CreatedAt time.Time
}

// EventStore persists operational worker events.
type EventStore interface {
	RecordEvent(ctx context.Context, record EventRecord) error
}

// EventLister reads back recorded worker events, newest first.
type EventLister interface {
	ListEvents(ctx context.Context, limit int) ([]EventRecord, error)
}
