package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/johnqh/di-web/internal/services/worker/render"
)

const (
	notificationTag = "di-web-push"
	defaultIcon     = "/logo192.png"
	defaultBadge    = "/logo72.png"
)

// Notification action identifiers offered on every push notification.
const (
	ActionOpen    = "open"
	ActionDismiss = "dismiss"
)

// PushPayload is the decoded body of a push message.
type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon"`
	Badge string `json:"badge"`
	Data  struct {
		URL string `json:"url"`
	} `json:"data"`
}

// ParsePushPayload decodes raw push bytes, reporting whether they were
// usable. Absent or malformed payloads are not errors.
func ParsePushPayload(raw []byte) (PushPayload, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return PushPayload{}, false
	}
	var payload PushPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return PushPayload{}, false
	}
	return payload, true
}

// HandlePush displays a notification for one push message. Unreadable
// payloads are absorbed without display.
func (w *Worker) HandlePush(ctx context.Context, raw []byte) error {
	if w == nil {
		return fmt.Errorf("worker is nil")
	}
	w.eventMu.Lock()
	defer w.eventMu.Unlock()

	payload, ok := ParsePushPayload(raw)
	if !ok {
		log.Printf("worker ignoring unreadable push payload")
		return nil
	}
	if w.notifier == nil {
		log.Printf("worker push dropped, no notifier configured")
		return nil
	}

	text := render.NotificationText(w.locale)
	notification := Notification{
		Tag:       notificationTag,
		Title:     payload.Title,
		Body:      payload.Body,
		Icon:      payload.Icon,
		Badge:     payload.Badge,
		TargetURL: payload.Data.URL,
		Actions: []NotificationAction{
			{ID: ActionOpen, Title: text.OpenLabel},
			{ID: ActionDismiss, Title: text.DismissLabel},
		},
	}
	if notification.Title == "" {
		notification.Title = text.Title
	}
	if notification.Body == "" {
		notification.Body = text.Body
	}
	if notification.Icon == "" {
		notification.Icon = defaultIcon
	}
	if notification.Badge == "" {
		notification.Badge = defaultBadge
	}
	if notification.TargetURL == "" {
		notification.TargetURL = "/"
	}

	if err := w.notifier.Show(ctx, notification); err != nil {
		return fmt.Errorf("show notification: %w", err)
	}
	return nil
}

// NotificationClick is one interaction with a displayed notification.
type NotificationClick struct {
	Tag       string
	Action    string
	TargetURL string
}

// HandleNotificationClick closes the notification and routes the user:
// dismissal stops there, otherwise an open client showing the target URL is
// focused or a new window is opened.
func (w *Worker) HandleNotificationClick(ctx context.Context, click NotificationClick) error {
	if w == nil {
		return fmt.Errorf("worker is nil")
	}
	w.eventMu.Lock()
	defer w.eventMu.Unlock()

	if w.notifier != nil {
		tag := click.Tag
		if tag == "" {
			tag = notificationTag
		}
		if err := w.notifier.Close(ctx, tag); err != nil {
			log.Printf("worker close notification %s: %v", tag, err)
		}
	}
	if click.Action == ActionDismiss {
		return nil
	}
	if w.clients == nil {
		log.Printf("worker notification click dropped, no client registry configured")
		return nil
	}

	target := click.TargetURL
	if target == "" {
		target = "/"
	}
	clients, err := w.clients.List(ctx)
	if err != nil {
		return fmt.Errorf("list clients: %w", err)
	}
	for _, client := range clients {
		if client.URL() == target {
			if err := client.Focus(ctx); err != nil {
				return fmt.Errorf("focus client %s: %w", client.ID(), err)
			}
			return nil
		}
	}
	if _, err := w.clients.OpenWindow(ctx, target); err != nil {
		return fmt.Errorf("open window %s: %w", target, err)
	}
	return nil
}

// HandleNotificationClose records a notification dismissed without
// interaction.
func (w *Worker) HandleNotificationClose(ctx context.Context, tag string) {
	if w == nil {
		return
	}
	w.eventMu.Lock()
	defer w.eventMu.Unlock()
	log.Printf("worker notification %s closed", tag)
}
