// Package domain implements the worker cache engine: request routing,
// caching strategies, eviction, lifecycle handling, push display, and
// failed-mutation replay.
package domain

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/johnqh/di-web/internal/services/worker/storage"
)

// Config assembles one worker instance.
type Config struct {
	Store        storage.Storage
	Fetcher      Fetcher
	Clients      ClientRegistry
	Notifier     Notifier
	Observer     Observer
	Origin       *url.URL
	AllowedHosts []string
	Namespaces   NamespaceSet
	Precache     []string
	Locale       string
	Clock        func() time.Time
	NewID        func() (string, error)
	// SkipWaiting signals the host that this version wants to activate
	// without waiting behind a previous one.
	SkipWaiting func()
}

// Worker is one running cache engine instance bound to a release version.
//
// Lifecycle, push, sync, and message handling are serialized; fetch handling
// is concurrent. Background work started by handlers is tracked so teardown
// can drain it.
type Worker struct {
	store       storage.Storage
	fetcher     Fetcher
	clients     ClientRegistry
	notifier    Notifier
	observer    Observer
	router      *Router
	spaces      NamespaceSet
	precache    []string
	locale      string
	clock       func() time.Time
	newID       func() (string, error)
	skipWaiting func()

	eventMu sync.Mutex
	tasks   sync.WaitGroup
}

// New validates cfg and builds a worker.
func New(cfg Config) (*Worker, error) {
	if cfg.Store == nil {
		return nil, ErrStoreRequired
	}
	if cfg.Fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if cfg.Clock == nil {
		return nil, ErrClockRequired
	}
	if cfg.NewID == nil {
		return nil, ErrIDGeneratorRequired
	}
	if strings.TrimSpace(cfg.Namespaces.Version) == "" {
		return nil, ErrVersionRequired
	}
	observer := cfg.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	locale := strings.TrimSpace(cfg.Locale)
	if locale == "" {
		locale = "en-US"
	}
	return &Worker{
		store:       cfg.Store,
		fetcher:     cfg.Fetcher,
		clients:     cfg.Clients,
		notifier:    cfg.Notifier,
		observer:    observer,
		router:      NewRouter(cfg.Origin, cfg.AllowedHosts),
		spaces:      cfg.Namespaces,
		precache:    cfg.Precache,
		locale:      locale,
		clock:       cfg.Clock,
		newID:       cfg.NewID,
		skipWaiting: cfg.SkipWaiting,
	}, nil
}

// Version returns the release version this worker serves.
func (w *Worker) Version() string {
	if w == nil {
		return ""
	}
	return w.spaces.Version
}

// HandleFetch routes req and executes its caching strategy. Responses from
// writable strategies are stored as copies; trims run as tracked background
// work after the response is produced.
func (w *Worker) HandleFetch(ctx context.Context, req Request) (storage.Response, error) {
	if w == nil {
		return storage.Response{}, fmt.Errorf("worker is nil")
	}

	decision := w.router.Route(req)
	if decision.Strategy == StrategyPassthrough {
		res, err := w.fetcher.Fetch(ctx, req)
		if err != nil {
			if req.Mutating() {
				if recordErr := w.recordPending(ctx, req); recordErr != nil {
					log.Printf("worker record pending %s %s: %v", req.Method, req.Key(), recordErr)
				}
			}
			return storage.Response{}, fmt.Errorf("fetch %s: %w", req.Key(), err)
		}
		return res, nil
	}

	policy := w.spaces.Policy(decision.Class)
	cache, err := w.openClass(ctx, decision.Class)
	if err != nil {
		return storage.Response{}, err
	}

	var res storage.Response
	switch decision.Strategy {
	case StrategyCacheFirst:
		res, err = w.cacheFirst(ctx, cache, req, policy)
	case StrategyStaleWhileRevalidate:
		res, err = w.staleWhileRevalidate(ctx, cache, req, policy)
	default:
		res, err = w.networkFirst(ctx, cache, req, policy)
	}
	if err != nil {
		return storage.Response{}, err
	}

	if decision.Trim && policy.MaxEntries > 0 {
		w.Track(func() {
			if err := w.trim(context.Background(), cache, policy); err != nil {
				log.Printf("worker trim %s: %v", w.spaces.Name(decision.Class), err)
			}
		})
	}
	return res, nil
}

// HandleMessage processes one control message.
func (w *Worker) HandleMessage(ctx context.Context, msg Message) {
	if w == nil {
		return
	}
	w.eventMu.Lock()
	defer w.eventMu.Unlock()

	switch msg.Type {
	case MessageSkipWaiting:
		if w.skipWaiting != nil {
			w.skipWaiting()
		}
	default:
		log.Printf("worker ignoring message %q", msg.Type)
	}
}

// Track runs fn as background work tied to this worker's lifetime.
func (w *Worker) Track(fn func()) {
	if w == nil || fn == nil {
		return
	}
	w.tasks.Add(1)
	go func() {
		defer w.tasks.Done()
		fn()
	}()
}

// Drain blocks until all tracked background work completes.
func (w *Worker) Drain() {
	if w == nil {
		return
	}
	w.tasks.Wait()
}

func (w *Worker) openClass(ctx context.Context, class NamespaceClass) (storage.Cache, error) {
	cache, err := w.store.Open(ctx, w.spaces.Name(class))
	if err != nil {
		return nil, fmt.Errorf("open %s bucket: %w", class, err)
	}
	return cache, nil
}

func (w *Worker) nowUTC() time.Time {
	return w.clock().UTC()
}
