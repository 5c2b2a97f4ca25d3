package app

import (
	"context"
	"log"

	"github.com/johnqh/di-web/internal/services/worker/domain"
	"github.com/johnqh/di-web/internal/telemetry"
)

// eventNotifier surfaces notifications on the operational event log. The
// runtime has no display surface; the log preserves what would have been
// shown to a user.
type eventNotifier struct {
	events *telemetry.Emitter
}

func (n *eventNotifier) Show(ctx context.Context, notification domain.Notification) error {
	log.Printf("notification shown: tag=%s title=%q", notification.Tag, notification.Title)
	return n.events.Emit(ctx, telemetry.SourceGateway, "notification-shown", notification.Tag)
}

func (n *eventNotifier) Close(ctx context.Context, tag string) error {
	log.Printf("notification closed: tag=%s", tag)
	return n.events.Emit(ctx, telemetry.SourceGateway, "notification-closed", tag)
}

var _ domain.Notifier = (*eventNotifier)(nil)
