package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/johnqh/di-web/internal/services/worker/storage"
)

// SyncTagResync is the connectivity-restore signal that triggers replay of
// recorded pending mutations.
const SyncTagResync = "di-web-resync"

// replayKeyPrefix reserves dynamic-bucket keys for pending mutation records.
// The router never produces keys under it, so records stay out of fetch
// matching.
const replayKeyPrefix = "/__replay/"

// pendingRequest is the stored form of a failed mutating request.
type pendingRequest struct {
	Method string      `json:"method"`
	URL    string      `json:"url"`
	Header http.Header `json:"header,omitempty"`
	Body   []byte      `json:"body,omitempty"`
}

// recordPending stores req in the dynamic bucket under a reserved key so a
// later resync can replay it.
func (w *Worker) recordPending(ctx context.Context, req Request) error {
	id, err := w.newID()
	if err != nil {
		return fmt.Errorf("new pending id: %w", err)
	}
	encoded, err := json.Marshal(pendingRequest{
		Method: req.Method,
		URL:    req.Key(),
		Header: req.Header,
		Body:   req.Body,
	})
	if err != nil {
		return fmt.Errorf("encode pending request: %w", err)
	}
	cache, err := w.openClass(ctx, ClassDynamic)
	if err != nil {
		return err
	}
	key := replayKeyPrefix + id
	if err := cache.Put(ctx, key, storage.Response{Body: encoded}, w.nowUTC()); err != nil {
		return fmt.Errorf("store pending request: %w", err)
	}
	log.Printf("worker recorded pending %s %s as %s", req.Method, req.Key(), key)
	return nil
}

// HandleSync replays recorded pending mutations in insertion order when tag
// is the resync tag. A replay that reaches the network deletes its record;
// a failed replay leaves the record for the next signal. Delivery is
// at-least-once and never deduplicated.
func (w *Worker) HandleSync(ctx context.Context, tag string) error {
	if w == nil {
		return fmt.Errorf("worker is nil")
	}
	w.eventMu.Lock()
	defer w.eventMu.Unlock()

	if tag != SyncTagResync {
		log.Printf("worker ignoring sync tag %q", tag)
		return nil
	}

	cache, err := w.openClass(ctx, ClassDynamic)
	if err != nil {
		return err
	}
	keys, err := cache.Keys(ctx)
	if err != nil {
		return fmt.Errorf("list pending keys: %w", err)
	}
	for _, key := range keys {
		if !strings.HasPrefix(key, replayKeyPrefix) {
			continue
		}
		entry, ok, err := cache.Match(ctx, key)
		if err != nil {
			return fmt.Errorf("load pending %s: %w", key, err)
		}
		if !ok {
			continue
		}

		var pending pendingRequest
		if err := json.Unmarshal(entry.Response.Body, &pending); err != nil {
			// An unreadable record can never replay; keeping it would wedge
			// every future resync.
			log.Printf("worker dropping unreadable pending %s: %v", key, err)
			if _, err := cache.Delete(ctx, key); err != nil {
				return fmt.Errorf("drop pending %s: %w", key, err)
			}
			continue
		}
		req, err := NewRequest(pending.Method, pending.URL, pending.Header, pending.Body)
		if err != nil {
			log.Printf("worker dropping invalid pending %s: %v", key, err)
			if _, err := cache.Delete(ctx, key); err != nil {
				return fmt.Errorf("drop pending %s: %w", key, err)
			}
			continue
		}

		if _, err := w.fetcher.Fetch(ctx, req); err != nil {
			w.observer.Replay(false)
			log.Printf("worker replay %s %s failed: %v", pending.Method, pending.URL, err)
			continue
		}
		w.observer.Replay(true)
		if _, err := cache.Delete(ctx, key); err != nil {
			return fmt.Errorf("remove replayed %s: %w", key, err)
		}
		log.Printf("worker replayed %s %s", pending.Method, pending.URL)
	}
	return nil
}
