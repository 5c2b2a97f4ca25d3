package app

import (
	"context"
	"testing"

	"github.com/johnqh/di-web/internal/services/worker/domain"
	"github.com/johnqh/di-web/internal/telemetry"
)

func TestEventNotifierRecordsShowAndClose(t *testing.T) {
	store := openTempWorkerStore(t)
	notifier := &eventNotifier{events: telemetry.NewEmitter(store)}

	err := notifier.Show(context.Background(), domain.Notification{Tag: "di-web-push", Title: "Ping"})
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if err := notifier.Close(context.Background(), "di-web-push"); err != nil {
		t.Fatalf("close: %v", err)
	}

	records, err := store.ListEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("events = %d, want 2", len(records))
	}
	kinds := map[string]string{}
	for _, record := range records {
		kinds[record.Kind] = record.Detail
		if record.Source != telemetry.SourceGateway {
			t.Fatalf("source = %q, want %q", record.Source, telemetry.SourceGateway)
		}
	}
	for _, want := range []string{"notification-shown", "notification-closed"} {
		if kinds[want] != "di-web-push" {
			t.Fatalf("kinds = %v, missing %q with the push tag", kinds, want)
		}
	}
}
