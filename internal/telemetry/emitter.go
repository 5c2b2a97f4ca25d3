// Package telemetry records operational worker events through a store
// boundary.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/johnqh/di-web/internal/platform/id"
	"github.com/johnqh/di-web/internal/services/worker/storage"
)

// Event sources.
const (
	SourceHost       = "host"
	SourceController = "controller"
	SourceGateway    = "gateway"
)

// Emitter records operational events. A nil emitter or store drops events
// silently so callers never need to guard emission.
type Emitter struct {
	store storage.EventStore
	clock func() time.Time
	newID func() (string, error)
}

// NewEmitter creates an emitter writing through store.
func NewEmitter(store storage.EventStore) *Emitter {
	return &Emitter{store: store, clock: time.Now, newID: id.NewID}
}

// Emit records one operational event.
func (e *Emitter) Emit(ctx context.Context, source, kind, detail string) error {
	if e == nil || e.store == nil {
		return nil
	}
	eventID, err := e.newID()
	if err != nil {
		return fmt.Errorf("new event id: %w", err)
	}
	record := storage.EventRecord{
		ID:        eventID,
		Source:    source,
		Kind:      kind,
		Detail:    detail,
		CreatedAt: e.clock().UTC(),
	}
	if err := e.store.RecordEvent(ctx, record); err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}
