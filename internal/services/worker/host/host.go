// Package host runs worker releases: it fetches the worker script, drives
// each version through the install and activate states, tracks the
// registration slots, and routes platform events to the active worker.
package host

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/johnqh/di-web/internal/services/worker/domain"
	"github.com/johnqh/di-web/internal/services/worker/script"
	"github.com/johnqh/di-web/internal/services/worker/storage"
	"github.com/johnqh/di-web/internal/telemetry"
)

var (
	// ErrSourceRequired indicates a host was built without a script source.
	ErrSourceRequired = errors.New("script source is required")
	// ErrNotRegistered indicates no worker registration is active.
	ErrNotRegistered = errors.New("no registration is active")
)

// ScriptSource fetches the worker script bytes for a path.
type ScriptSource interface {
	Script(ctx context.Context, path string) ([]byte, error)
}

// ScriptSourceFunc adapts a function to the ScriptSource interface.
type ScriptSourceFunc func(ctx context.Context, path string) ([]byte, error)

// Script calls f.
func (f ScriptSourceFunc) Script(ctx context.Context, path string) ([]byte, error) {
	return f(ctx, path)
}

// Config assembles a worker host.
type Config struct {
	Source       ScriptSource
	Store        storage.Storage
	Fetcher      domain.Fetcher
	Notifier     domain.Notifier
	Observer     domain.Observer
	Events       *telemetry.Emitter
	Origin       *url.URL
	AllowedHosts []string
	Locale       string
	Clock        func() time.Time
	NewID        func() (string, error)
}

// Host owns the single worker registration of the process. Script bytes
// define worker identity: registering or updating with unchanged bytes is a
// no-op, changed bytes run a new version through the install flow.
type Host struct {
	source       ScriptSource
	store        storage.Storage
	fetcher      domain.Fetcher
	notifier     domain.Notifier
	observer     domain.Observer
	events       *telemetry.Emitter
	origin       *url.URL
	allowedHosts []string
	locale       string
	clock        func() time.Time
	newID        func() (string, error)
	clients      *Clients

	mu          sync.Mutex
	reg         *Registration
	path        string
	fingerprint string
	ready       chan struct{}
	readyClosed bool
}

// New validates cfg and builds a host.
func New(cfg Config) (*Host, error) {
	if cfg.Source == nil {
		return nil, ErrSourceRequired
	}
	if cfg.Store == nil {
		return nil, domain.ErrStoreRequired
	}
	if cfg.Fetcher == nil {
		return nil, domain.ErrFetcherRequired
	}
	if cfg.Clock == nil {
		return nil, domain.ErrClockRequired
	}
	if cfg.NewID == nil {
		return nil, domain.ErrIDGeneratorRequired
	}
	return &Host{
		source:       cfg.Source,
		store:        cfg.Store,
		fetcher:      cfg.Fetcher,
		notifier:     cfg.Notifier,
		observer:     cfg.Observer,
		events:       cfg.Events,
		origin:       cfg.Origin,
		allowedHosts: cfg.AllowedHosts,
		locale:       cfg.Locale,
		clock:        cfg.Clock,
		newID:        cfg.NewID,
		clients:      NewClients(cfg.Clock, cfg.NewID),
		ready:        make(chan struct{}),
	}, nil
}

// Clients returns the page registry workers claim and control.
func (h *Host) Clients() *Clients {
	return h.clients
}

// Registration returns the current registration, nil when unregistered.
func (h *Host) Registration() *Registration {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reg
}

// Register fetches the worker script at path and installs it under scope.
// Unchanged script bytes resolve to the existing registration without a new
// install. A failed first install fails the registration.
func (h *Host) Register(ctx context.Context, path, scope string) (*Registration, error) {
	raw, err := h.source.Script(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetch worker script %s: %w", path, err)
	}
	manifest, err := script.ParseManifest(raw)
	if err != nil {
		return nil, fmt.Errorf("parse worker script %s: %w", path, err)
	}
	fingerprint := script.Fingerprint(raw)

	h.mu.Lock()
	if h.reg == nil {
		if strings.TrimSpace(scope) == "" {
			scope = "/"
		}
		h.reg = newRegistration(scope)
	}
	reg := h.reg
	h.path = path
	unchanged := h.fingerprint == fingerprint
	h.mu.Unlock()

	if unchanged {
		return reg, nil
	}
	if err := h.install(ctx, reg, manifest, fingerprint); err != nil {
		if reg.Active() != nil {
			log.Printf("host update during register failed: %v", err)
			return reg, nil
		}
		return nil, err
	}
	return reg, nil
}

// Update re-fetches the registered script and installs changed bytes.
func (h *Host) Update(ctx context.Context) error {
	h.mu.Lock()
	reg, path, current := h.reg, h.path, h.fingerprint
	h.mu.Unlock()
	if reg == nil {
		return ErrNotRegistered
	}

	raw, err := h.source.Script(ctx, path)
	if err != nil {
		return fmt.Errorf("fetch worker script %s: %w", path, err)
	}
	manifest, err := script.ParseManifest(raw)
	if err != nil {
		return fmt.Errorf("parse worker script %s: %w", path, err)
	}
	fingerprint := script.Fingerprint(raw)
	if fingerprint == current {
		return nil
	}
	return h.install(ctx, reg, manifest, fingerprint)
}

// install runs one new version through the install state machine.
func (h *Host) install(ctx context.Context, reg *Registration, manifest script.Manifest, fingerprint string) error {
	version := newVersion(manifest.Version)
	worker, err := domain.New(domain.Config{
		Store:        h.store,
		Fetcher:      h.fetcher,
		Clients:      h.clients,
		Notifier:     h.notifier,
		Observer:     h.observer,
		Origin:       h.origin,
		AllowedHosts: h.allowedHosts,
		Namespaces:   domain.DefaultNamespaces(manifest.Version),
		Precache:     manifest.Precache,
		Locale:       h.locale,
		Clock:        h.clock,
		NewID:        h.newID,
		SkipWaiting:  version.requestSkip,
	})
	if err != nil {
		return fmt.Errorf("build worker %s: %w", manifest.Version, err)
	}
	version.worker = worker

	reg.startInstalling(version)
	h.emit(ctx, "install", manifest.Version)

	if err := worker.HandleInstall(ctx); err != nil {
		version.setState(StateRedundant)
		reg.finishInstalling(version, false)
		h.emit(ctx, "install-failed", manifest.Version)
		return fmt.Errorf("install worker %s: %w", manifest.Version, err)
	}
	version.setState(StateInstalled)
	reg.finishInstalling(version, true)
	h.emit(ctx, "installed", manifest.Version)

	h.mu.Lock()
	h.fingerprint = fingerprint
	h.mu.Unlock()

	if version.skipRequested() || reg.Active() == nil {
		return h.activate(ctx, reg, version)
	}
	return nil
}

// activate promotes version to the active slot and retires its predecessor
// once the predecessor's in-flight work drains.
func (h *Host) activate(ctx context.Context, reg *Registration, version *Version) error {
	old := reg.promote(version)
	version.setState(StateActivating)

	if _, err := version.worker.HandleActivate(ctx); err != nil {
		version.setState(StateRedundant)
		reg.demote(version)
		h.emit(ctx, "activate-failed", version.Name())
		return fmt.Errorf("activate worker %s: %w", version.Name(), err)
	}
	version.setState(StateActivated)
	h.markReady()
	h.emit(ctx, "activated", version.Name())

	if old != nil && old != version {
		old.worker.Drain()
		old.setState(StateRedundant)
		h.emit(ctx, "redundant", old.Name())
	}
	return nil
}

// Ready blocks until a worker version is activated and serving.
func (h *Host) Ready(ctx context.Context) (*Registration, error) {
	h.mu.Lock()
	ready := h.ready
	h.mu.Unlock()

	select {
	case <-ready:
		return h.Registration(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Unregister awaits readiness, detaches the registration, and retires every
// tracked version. It reports whether a registration existed.
func (h *Host) Unregister(ctx context.Context) (bool, error) {
	h.mu.Lock()
	reg := h.reg
	h.mu.Unlock()
	if reg == nil {
		return false, nil
	}
	if _, err := h.Ready(ctx); err != nil {
		return false, err
	}

	h.mu.Lock()
	h.reg = nil
	h.path = ""
	h.fingerprint = ""
	h.ready = make(chan struct{})
	h.readyClosed = false
	h.mu.Unlock()

	for _, version := range reg.detach() {
		if worker := version.Worker(); worker != nil {
			worker.Drain()
		}
		version.setState(StateRedundant)
	}
	h.emit(ctx, "unregistered", "")
	return true, nil
}

// Message delivers a control message to the waiting version when one exists,
// otherwise to the active version, and applies a requested promotion.
func (h *Host) Message(ctx context.Context, msg domain.Message) {
	reg := h.Registration()
	if reg == nil {
		return
	}
	target := reg.Waiting()
	if target == nil {
		target = reg.Active()
	}
	if target == nil || target.Worker() == nil {
		return
	}
	target.worker.HandleMessage(ctx, msg)
	if target != reg.Active() && target.skipRequested() {
		if err := h.activate(ctx, reg, target); err != nil {
			log.Printf("host promote waiting worker: %v", err)
		}
	}
}

// Fetch routes one intercepted request through the active worker.
func (h *Host) Fetch(ctx context.Context, req domain.Request) (storage.Response, error) {
	worker, err := h.activeWorker()
	if err != nil {
		return storage.Response{}, err
	}
	return worker.HandleFetch(ctx, req)
}

// Push delivers a push payload to the active worker.
func (h *Host) Push(ctx context.Context, payload []byte) error {
	worker, err := h.activeWorker()
	if err != nil {
		return err
	}
	return worker.HandlePush(ctx, payload)
}

// Sync delivers a connectivity-restore signal to the active worker.
func (h *Host) Sync(ctx context.Context, tag string) error {
	worker, err := h.activeWorker()
	if err != nil {
		return err
	}
	return worker.HandleSync(ctx, tag)
}

// NotificationClick routes a notification interaction to the active worker.
func (h *Host) NotificationClick(ctx context.Context, click domain.NotificationClick) error {
	worker, err := h.activeWorker()
	if err != nil {
		return err
	}
	return worker.HandleNotificationClick(ctx, click)
}

// NotificationClose records a notification dismissal on the active worker.
func (h *Host) NotificationClose(ctx context.Context, tag string) error {
	worker, err := h.activeWorker()
	if err != nil {
		return err
	}
	worker.HandleNotificationClose(ctx, tag)
	return nil
}

func (h *Host) activeWorker() (*domain.Worker, error) {
	reg := h.Registration()
	if reg == nil {
		return nil, ErrNotRegistered
	}
	active := reg.Active()
	if active == nil || active.Worker() == nil {
		return nil, ErrNotRegistered
	}
	return active.Worker(), nil
}

func (h *Host) markReady() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.readyClosed {
		close(h.ready)
		h.readyClosed = true
	}
}

func (h *Host) emit(ctx context.Context, kind, detail string) {
	if err := h.events.Emit(ctx, telemetry.SourceHost, kind, detail); err != nil {
		log.Printf("host emit %s: %v", kind, err)
	}
}
