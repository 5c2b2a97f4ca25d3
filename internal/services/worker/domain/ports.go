package domain

import "context"

// Client is one open application page known to the platform.
type Client interface {
	ID() string
	URL() string
	Focus(ctx context.Context) error
}

// ClientRegistry exposes the open clients the worker may control.
type ClientRegistry interface {
	List(ctx context.Context) ([]Client, error)
	// Claim takes control of all open clients without a reload.
	Claim(ctx context.Context) error
	OpenWindow(ctx context.Context, url string) (Client, error)
}

// NotificationAction is one button offered on a displayed notification.
type NotificationAction struct {
	ID    string
	Title string
}

// Notification describes one displayed push notification.
type Notification struct {
	Tag       string
	Title     string
	Body      string
	Icon      string
	Badge     string
	TargetURL string
	Actions   []NotificationAction
}

// Notifier displays and dismisses notifications on the platform surface.
type Notifier interface {
	Show(ctx context.Context, n Notification) error
	Close(ctx context.Context, tag string) error
}

// Observer receives cache engine outcome signals. Implementations must be
// safe for concurrent use.
type Observer interface {
	CacheHit(class NamespaceClass)
	CacheMiss(class NamespaceClass)
	NetworkFetch(class NamespaceClass)
	Eviction(class NamespaceClass)
	Replay(ok bool)
}

type noopObserver struct{}

func (noopObserver) CacheHit(NamespaceClass)     {}
func (noopObserver) CacheMiss(NamespaceClass)    {}
func (noopObserver) NetworkFetch(NamespaceClass) {}
func (noopObserver) Eviction(NamespaceClass)     {}
func (noopObserver) Replay(bool)                 {}
