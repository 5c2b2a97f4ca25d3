package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/johnqh/di-web/internal/services/worker/storage"
)

func TestFailedMutationIsRecorded(t *testing.T) {
	tw := newTestWorker(t, nil)
	tw.fetcher.fail("/api/items", errNetworkDown)

	header := http.Header{"X-Token": []string{"abc"}}
	req, err := NewRequest(http.MethodPost, "/api/items", header, []byte(`{"name":"a"}`))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if _, err := tw.HandleFetch(context.Background(), req); !errors.Is(err, errNetworkDown) {
		t.Fatalf("error = %v, want wrapped network failure", err)
	}

	keys := bucketKeys(t, tw.store, tw.spaces.Name(ClassDynamic))
	if len(keys) != 1 || !strings.HasPrefix(keys[0], "/__replay/") {
		t.Fatalf("dynamic keys = %v, want one reserved replay record", keys)
	}

	cache, err := tw.store.Open(context.Background(), tw.spaces.Name(ClassDynamic))
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	entry, ok, err := cache.Match(context.Background(), keys[0])
	if err != nil || !ok {
		t.Fatalf("match record: ok=%v err=%v", ok, err)
	}

	var pending pendingRequest
	if err := json.Unmarshal(entry.Response.Body, &pending); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if pending.Method != http.MethodPost || pending.URL != "/api/items" {
		t.Fatalf("record = %+v, want original method and url", pending)
	}
	if !bytes.Equal(pending.Body, []byte(`{"name":"a"}`)) {
		t.Fatalf("record body = %q, want original body", pending.Body)
	}
	if pending.Header.Get("X-Token") != "abc" {
		t.Fatalf("record header = %v, want original header", pending.Header)
	}
}

func TestFailedReadIsNotRecorded(t *testing.T) {
	tw := newTestWorker(t, nil)
	tw.fetcher.fail("/api/items", errNetworkDown)

	if _, err := tw.HandleFetch(context.Background(), getRequest(t, "/api/items", nil)); !errors.Is(err, errNetworkDown) {
		t.Fatalf("error = %v, want wrapped network failure", err)
	}

	names, err := tw.store.Names(context.Background())
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("buckets = %v, want none for failed read", names)
	}
}

func postRequest(t *testing.T, rawURL, body string) Request {
	t.Helper()
	req, err := NewRequest(http.MethodPost, rawURL, nil, []byte(body))
	if err != nil {
		t.Fatalf("new request %s: %v", rawURL, err)
	}
	return req
}

func TestHandleSyncReplaysPendingInOrder(t *testing.T) {
	tw := newTestWorker(t, nil)
	tw.fetcher.fail("/api/a", errNetworkDown)
	tw.fetcher.fail("/api/b", errNetworkDown)

	if _, err := tw.HandleFetch(context.Background(), postRequest(t, "/api/a", "a-payload")); err == nil {
		t.Fatal("expected first mutation to fail")
	}
	if _, err := tw.HandleFetch(context.Background(), postRequest(t, "/api/b", "b-payload")); err == nil {
		t.Fatal("expected second mutation to fail")
	}

	tw.fetcher.respond("/api/a", 200, "ok")
	tw.fetcher.respond("/api/b", 200, "ok")
	if err := tw.HandleSync(context.Background(), SyncTagResync); err != nil {
		t.Fatalf("sync: %v", err)
	}

	keys := bucketKeys(t, tw.store, tw.spaces.Name(ClassDynamic))
	if len(keys) != 0 {
		t.Fatalf("records after replay = %v, want none", keys)
	}

	calls := tw.fetcher.requests()
	if len(calls) != 4 {
		t.Fatalf("network calls = %d, want 4", len(calls))
	}
	if calls[2].Key() != "/api/a" || calls[3].Key() != "/api/b" {
		t.Fatalf("replay order = [%s %s], want [/api/a /api/b]", calls[2].Key(), calls[3].Key())
	}
	if calls[2].Method != http.MethodPost || string(calls[2].Body) != "a-payload" {
		t.Fatalf("replayed request = %s %q, want original method and body", calls[2].Method, calls[2].Body)
	}

	if got := tw.observed.replayOutcomes(); len(got) != 2 || !got[0] || !got[1] {
		t.Fatalf("replay outcomes = %v, want [true true]", got)
	}
}

func TestHandleSyncKeepsRecordsWhenReplayFails(t *testing.T) {
	tw := newTestWorker(t, nil)
	tw.fetcher.fail("/api/a", errNetworkDown)

	if _, err := tw.HandleFetch(context.Background(), postRequest(t, "/api/a", "payload")); err == nil {
		t.Fatal("expected mutation to fail")
	}

	if err := tw.HandleSync(context.Background(), SyncTagResync); err != nil {
		t.Fatalf("sync while offline: %v", err)
	}
	keys := bucketKeys(t, tw.store, tw.spaces.Name(ClassDynamic))
	if len(keys) != 1 {
		t.Fatalf("records after failed replay = %v, want the record kept", keys)
	}

	tw.fetcher.respond("/api/a", 200, "ok")
	if err := tw.HandleSync(context.Background(), SyncTagResync); err != nil {
		t.Fatalf("sync while online: %v", err)
	}
	keys = bucketKeys(t, tw.store, tw.spaces.Name(ClassDynamic))
	if len(keys) != 0 {
		t.Fatalf("records after successful replay = %v, want none", keys)
	}

	got := tw.observed.replayOutcomes()
	if len(got) != 2 || got[0] || !got[1] {
		t.Fatalf("replay outcomes = %v, want [false true]", got)
	}
}

func TestHandleSyncDropsUnreadableRecords(t *testing.T) {
	tw := newTestWorker(t, nil)
	cache, err := tw.store.Open(context.Background(), tw.spaces.Name(ClassDynamic))
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	if err := cache.Put(context.Background(), "/__replay/garbled", storage.Response{Body: []byte("not-json")}, tw.clock.Now()); err != nil {
		t.Fatalf("seed garbled record: %v", err)
	}
	badURL, err := json.Marshal(pendingRequest{Method: http.MethodPost, URL: "://bad"})
	if err != nil {
		t.Fatalf("encode record: %v", err)
	}
	if err := cache.Put(context.Background(), "/__replay/bad-url", storage.Response{Body: badURL}, tw.clock.Now()); err != nil {
		t.Fatalf("seed bad-url record: %v", err)
	}

	if err := tw.HandleSync(context.Background(), SyncTagResync); err != nil {
		t.Fatalf("sync: %v", err)
	}

	keys := bucketKeys(t, tw.store, tw.spaces.Name(ClassDynamic))
	if len(keys) != 0 {
		t.Fatalf("records after sync = %v, want unreadable records dropped", keys)
	}
	if calls := tw.fetcher.requests(); len(calls) != 0 {
		t.Fatalf("network calls = %d, want none for unreadable records", len(calls))
	}
}

func TestHandleSyncIgnoresForeignTags(t *testing.T) {
	tw := newTestWorker(t, nil)
	tw.fetcher.fail("/api/a", errNetworkDown)

	if _, err := tw.HandleFetch(context.Background(), postRequest(t, "/api/a", "payload")); err == nil {
		t.Fatal("expected mutation to fail")
	}

	if err := tw.HandleSync(context.Background(), "mailbox-sync"); err != nil {
		t.Fatalf("sync: %v", err)
	}

	keys := bucketKeys(t, tw.store, tw.spaces.Name(ClassDynamic))
	if len(keys) != 1 {
		t.Fatalf("records = %v, want record untouched by foreign tag", keys)
	}
	if got := tw.fetcher.count("/api/a"); got != 1 {
		t.Fatalf("network calls = %d, want only the original attempt", got)
	}
}

func TestHandleSyncLeavesCachedEntriesAlone(t *testing.T) {
	tw := newTestWorker(t, nil)
	cache, err := tw.store.Open(context.Background(), tw.spaces.Name(ClassDynamic))
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	if err := cache.Put(context.Background(), "/dashboard", storage.Response{StatusCode: 200, Body: []byte("page")}, tw.clock.Now()); err != nil {
		t.Fatalf("seed cached page: %v", err)
	}

	tw.fetcher.fail("/api/a", errNetworkDown)
	if _, err := tw.HandleFetch(context.Background(), postRequest(t, "/api/a", "payload")); err == nil {
		t.Fatal("expected mutation to fail")
	}

	tw.fetcher.respond("/api/a", 200, "ok")
	if err := tw.HandleSync(context.Background(), SyncTagResync); err != nil {
		t.Fatalf("sync: %v", err)
	}

	keys := bucketKeys(t, tw.store, tw.spaces.Name(ClassDynamic))
	if len(keys) != 1 || keys[0] != "/dashboard" {
		t.Fatalf("dynamic keys = %v, want cached page preserved", keys)
	}
}
