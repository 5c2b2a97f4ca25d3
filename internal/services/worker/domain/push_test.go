package domain

import (
	"context"
	"errors"
	"testing"
)

func TestParsePushPayload(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
		ok   bool
	}{
		{name: "nil", raw: nil, ok: false},
		{name: "whitespace", raw: []byte("  \n "), ok: false},
		{name: "malformed", raw: []byte(`{"title":`), ok: false},
		{name: "empty object", raw: []byte(`{}`), ok: true},
		{name: "full payload", raw: []byte(`{"title":"Hi","body":"There","data":{"url":"/inbox"}}`), ok: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := ParsePushPayload(tc.raw); ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
		})
	}

	payload, ok := ParsePushPayload([]byte(`{"title":"Hi","body":"There","icon":"/i.png","badge":"/b.png","data":{"url":"/inbox"}}`))
	if !ok {
		t.Fatal("expected payload to parse")
	}
	if payload.Title != "Hi" || payload.Body != "There" {
		t.Fatalf("payload = %+v, want title and body preserved", payload)
	}
	if payload.Data.URL != "/inbox" {
		t.Fatalf("target url = %q, want /inbox", payload.Data.URL)
	}
}

func TestHandlePushShowsNotification(t *testing.T) {
	tw := newTestWorker(t, nil)
	raw := []byte(`{"title":"New reply","body":"Ana replied to you","icon":"/icons/reply.png","badge":"/icons/badge.png","data":{"url":"/threads/9"}}`)

	if err := tw.HandlePush(context.Background(), raw); err != nil {
		t.Fatalf("push: %v", err)
	}
	if len(tw.notifier.shown) != 1 {
		t.Fatalf("notifications shown = %d, want 1", len(tw.notifier.shown))
	}

	shown := tw.notifier.shown[0]
	if shown.Tag != "di-web-push" {
		t.Fatalf("tag = %q, want di-web-push", shown.Tag)
	}
	if shown.Title != "New reply" || shown.Body != "Ana replied to you" {
		t.Fatalf("notification = %+v, want payload text preserved", shown)
	}
	if shown.Icon != "/icons/reply.png" || shown.Badge != "/icons/badge.png" {
		t.Fatalf("notification = %+v, want payload art preserved", shown)
	}
	if shown.TargetURL != "/threads/9" {
		t.Fatalf("target = %q, want /threads/9", shown.TargetURL)
	}
	if len(shown.Actions) != 2 {
		t.Fatalf("actions = %d, want 2", len(shown.Actions))
	}
	if shown.Actions[0].ID != ActionOpen || shown.Actions[0].Title != "Open" {
		t.Fatalf("first action = %+v, want open", shown.Actions[0])
	}
	if shown.Actions[1].ID != ActionDismiss || shown.Actions[1].Title != "Dismiss" {
		t.Fatalf("second action = %+v, want dismiss", shown.Actions[1])
	}
}

func TestHandlePushAppliesDefaults(t *testing.T) {
	tw := newTestWorker(t, nil)

	if err := tw.HandlePush(context.Background(), []byte(`{}`)); err != nil {
		t.Fatalf("push: %v", err)
	}
	if len(tw.notifier.shown) != 1 {
		t.Fatalf("notifications shown = %d, want 1", len(tw.notifier.shown))
	}

	shown := tw.notifier.shown[0]
	if shown.Title != "di-web" {
		t.Fatalf("title = %q, want default", shown.Title)
	}
	if shown.Body != "You have a new notification." {
		t.Fatalf("body = %q, want default", shown.Body)
	}
	if shown.Icon != "/logo192.png" || shown.Badge != "/logo72.png" {
		t.Fatalf("notification = %+v, want default art", shown)
	}
	if shown.TargetURL != "/" {
		t.Fatalf("target = %q, want /", shown.TargetURL)
	}
}

func TestHandlePushLocalizedDefaults(t *testing.T) {
	tw := newTestWorker(t, func(cfg *Config) { cfg.Locale = "pt-BR" })

	if err := tw.HandlePush(context.Background(), []byte(`{}`)); err != nil {
		t.Fatalf("push: %v", err)
	}
	if len(tw.notifier.shown) != 1 {
		t.Fatalf("notifications shown = %d, want 1", len(tw.notifier.shown))
	}

	shown := tw.notifier.shown[0]
	if shown.Body != "Você tem uma nova notificação." {
		t.Fatalf("body = %q, want localized default", shown.Body)
	}
	if shown.Actions[0].Title != "Abrir" || shown.Actions[1].Title != "Dispensar" {
		t.Fatalf("actions = %+v, want localized labels", shown.Actions)
	}
}

func TestHandlePushIgnoresUnreadablePayloads(t *testing.T) {
	tw := newTestWorker(t, nil)

	for _, raw := range [][]byte{nil, []byte("   "), []byte(`{"title":`)} {
		if err := tw.HandlePush(context.Background(), raw); err != nil {
			t.Fatalf("push %q: %v", raw, err)
		}
	}
	if len(tw.notifier.shown) != 0 {
		t.Fatalf("notifications shown = %d, want 0", len(tw.notifier.shown))
	}
}

func TestHandlePushWithoutNotifier(t *testing.T) {
	tw := newTestWorker(t, func(cfg *Config) { cfg.Notifier = nil })

	if err := tw.HandlePush(context.Background(), []byte(`{}`)); err != nil {
		t.Fatalf("push without notifier: %v", err)
	}
}

func TestHandlePushPropagatesShowFailure(t *testing.T) {
	tw := newTestWorker(t, nil)
	showErr := errors.New("display denied")
	tw.notifier.showErr = showErr

	if err := tw.HandlePush(context.Background(), []byte(`{}`)); !errors.Is(err, showErr) {
		t.Fatalf("error = %v, want wrapped show failure", err)
	}
}

func TestHandleNotificationClickFocusesMatchingClient(t *testing.T) {
	tw := newTestWorker(t, nil)
	inbox := &fakeClient{id: "c1", url: "/inbox"}
	tw.clients.clients = []*fakeClient{{id: "c0", url: "/"}, inbox}

	click := NotificationClick{Tag: "di-web-push", Action: ActionOpen, TargetURL: "/inbox"}
	if err := tw.HandleNotificationClick(context.Background(), click); err != nil {
		t.Fatalf("click: %v", err)
	}

	if inbox.focused != 1 {
		t.Fatalf("focus calls = %d, want 1", inbox.focused)
	}
	if len(tw.clients.opened) != 0 {
		t.Fatalf("windows opened = %v, want none", tw.clients.opened)
	}
	if len(tw.notifier.closed) != 1 || tw.notifier.closed[0] != "di-web-push" {
		t.Fatalf("closed tags = %v, want [di-web-push]", tw.notifier.closed)
	}
}

func TestHandleNotificationClickOpensWindowWhenNoMatch(t *testing.T) {
	tw := newTestWorker(t, nil)
	tw.clients.clients = []*fakeClient{{id: "c0", url: "/"}}

	click := NotificationClick{Action: ActionOpen, TargetURL: "/settings"}
	if err := tw.HandleNotificationClick(context.Background(), click); err != nil {
		t.Fatalf("click: %v", err)
	}
	if len(tw.clients.opened) != 1 || tw.clients.opened[0] != "/settings" {
		t.Fatalf("windows opened = %v, want [/settings]", tw.clients.opened)
	}
}

func TestHandleNotificationClickDefaultsTargetToRoot(t *testing.T) {
	tw := newTestWorker(t, nil)

	if err := tw.HandleNotificationClick(context.Background(), NotificationClick{}); err != nil {
		t.Fatalf("click: %v", err)
	}
	if len(tw.clients.opened) != 1 || tw.clients.opened[0] != "/" {
		t.Fatalf("windows opened = %v, want [/]", tw.clients.opened)
	}
	if len(tw.notifier.closed) != 1 || tw.notifier.closed[0] != "di-web-push" {
		t.Fatalf("closed tags = %v, want default tag", tw.notifier.closed)
	}
}

func TestHandleNotificationClickDismissOnlyCloses(t *testing.T) {
	tw := newTestWorker(t, nil)
	tw.clients.clients = []*fakeClient{{id: "c0", url: "/"}}

	click := NotificationClick{Tag: "di-web-push", Action: ActionDismiss, TargetURL: "/inbox"}
	if err := tw.HandleNotificationClick(context.Background(), click); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if len(tw.notifier.closed) != 1 {
		t.Fatalf("closed tags = %v, want the dismissed notification", tw.notifier.closed)
	}
	if len(tw.clients.opened) != 0 || tw.clients.clients[0].focused != 0 {
		t.Fatal("dismiss must not navigate")
	}
}

func TestHandleNotificationClose(t *testing.T) {
	tw := newTestWorker(t, nil)

	tw.HandleNotificationClose(context.Background(), "di-web-push")
}
