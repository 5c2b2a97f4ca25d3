// Package registration drives the worker registration lifecycle from the
// page side: precondition checks, the retried register call, the periodic
// update check, and the state broadcast to subscribers.
package registration

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/johnqh/di-web/internal/platform/backoff"
	"github.com/johnqh/di-web/internal/services/worker/host"
)

// State is one externally visible registration lifecycle phase.
type State string

const (
	// StateRegistering is emitted once, before the first register attempt.
	StateRegistering State = "registering"
	// StateRegistered is emitted when a register attempt succeeds.
	StateRegistered State = "registered"
	// StateUpdateAvailable is emitted when a new worker version finishes
	// installing while an older one is still in control.
	StateUpdateAvailable State = "update-available"
	// StateError is emitted after every failed register attempt.
	StateError State = "error"
	// StateUnsupported is the terminal state when the platform lacks
	// worker support.
	StateUnsupported State = "unsupported"
	// StateInsecureContext is the terminal state when the origin is plain
	// HTTP on a non-loopback host.
	StateInsecureContext State = "insecure-context"
)

const (
	// DefaultScriptPath is the worker script registered when none is set.
	DefaultScriptPath = "/sw.js"
	// DefaultScope is the registration scope when none is set.
	DefaultScope = "/"
	// DefaultMaxRetries bounds register retries after the first attempt.
	DefaultMaxRetries = 3
	// DefaultUpdateCheckInterval is the cadence of update checks once a
	// registration succeeds.
	DefaultUpdateCheckInterval = 24 * time.Hour
)

// Registrar is the platform registration surface the controller drives.
type Registrar interface {
	Register(ctx context.Context, path, scope string) (*host.Registration, error)
	Update(ctx context.Context) error
	Ready(ctx context.Context) (*host.Registration, error)
	Unregister(ctx context.Context) (bool, error)
}

// Config assembles a registration controller.
type Config struct {
	// Registrar is the platform surface. A nil registrar means the
	// platform has no worker capability.
	Registrar Registrar
	// Enabled gates the controller; derived from the build mode.
	Enabled bool
	// ForceEnable overrides a false Enabled, for trying the worker in
	// development builds.
	ForceEnable bool
	// OriginURL is the page origin the transport check inspects.
	OriginURL string

	ScriptPath          string
	Scope               string
	MaxRetries          int
	UpdateCheckInterval time.Duration

	// LoadSignal defers the first attempt until the channel yields or
	// closes. A nil channel starts immediately.
	LoadSignal <-chan struct{}
	// OnStateChange subscribes an initial observer.
	OnStateChange func(State)
	// Wait blocks between retries. Defaults to the shared backoff wait.
	Wait func(ctx context.Context, delay time.Duration) bool
}

// Controller owns one registration lifecycle. Build one per process; state
// is broadcast to subscribers and never persisted.
type Controller struct {
	registrar   Registrar
	enabled     bool
	originURL   string
	scriptPath  string
	scope       string
	maxRetries  int
	updateEvery time.Duration
	load        <-chan struct{}
	wait        func(ctx context.Context, delay time.Duration) bool
	schedule    backoff.Schedule

	mu        sync.Mutex
	observers []func(State)
	current   State
	reg       *host.Registration
}

// New builds a controller from cfg. Zero values take the documented
// defaults; a nil registrar is kept and resolves to the unsupported state.
func New(cfg Config) *Controller {
	c := &Controller{
		registrar:   cfg.Registrar,
		enabled:     cfg.Enabled || cfg.ForceEnable,
		originURL:   cfg.OriginURL,
		scriptPath:  cfg.ScriptPath,
		scope:       cfg.Scope,
		maxRetries:  cfg.MaxRetries,
		updateEvery: cfg.UpdateCheckInterval,
		load:        cfg.LoadSignal,
		wait:        cfg.Wait,
		schedule:    backoff.Schedule{Base: time.Second},
	}
	if strings.TrimSpace(c.scriptPath) == "" {
		c.scriptPath = DefaultScriptPath
	}
	if strings.TrimSpace(c.scope) == "" {
		c.scope = DefaultScope
	}
	if c.maxRetries <= 0 {
		c.maxRetries = DefaultMaxRetries
	}
	if c.updateEvery <= 0 {
		c.updateEvery = DefaultUpdateCheckInterval
	}
	if c.wait == nil {
		c.wait = backoff.Wait
	}
	if cfg.OnStateChange != nil {
		c.observers = append(c.observers, cfg.OnStateChange)
	}
	return c
}

// Subscribe adds an observer for every subsequent state emission.
func (c *Controller) Subscribe(fn func(State)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// State returns the last emitted state, empty before the first emission.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Registration returns the registration obtained on success, nil before.
func (c *Controller) Registration() *host.Registration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reg
}

// Start launches the registration flow. The flow waits for the load signal,
// then checks preconditions and attempts registration with retries. Timers
// stop only when ctx ends.
func (c *Controller) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Controller) run(ctx context.Context) {
	if c.load != nil {
		select {
		case <-c.load:
		case <-ctx.Done():
			return
		}
	}
	if !c.enabled {
		return
	}
	if c.registrar == nil {
		log.Printf("registration skipped: platform has no worker support")
		c.emit(StateUnsupported)
		return
	}
	if !secureOrigin(c.originURL) {
		log.Printf("registration skipped: origin %q is not a secure context", c.originURL)
		c.emit(StateInsecureContext)
		return
	}

	c.emit(StateRegistering)
	for attempt := 1; ; attempt++ {
		reg, err := c.registrar.Register(ctx, c.scriptPath, c.scope)
		if err == nil {
			log.Printf("worker registered with scope %s", c.scope)
			c.setRegistration(reg)
			c.emit(StateRegistered)
			c.watchUpdates(reg)
			c.armUpdateChecks(ctx)
			return
		}
		log.Printf("worker registration attempt %d failed: %v", attempt, err)
		c.emit(StateError)
		if attempt > c.maxRetries {
			return
		}
		if !c.wait(ctx, c.schedule.Delay(attempt)) {
			return
		}
	}
}

// watchUpdates emits update-available when a newly discovered version
// reaches installed while an older version is still in control. The control
// check runs when the update is discovered, distinguishing updates from the
// first install.
func (c *Controller) watchUpdates(reg *host.Registration) {
	if reg == nil {
		return
	}
	reg.OnUpdateFound(func(v *host.Version) {
		hadController := reg.Active() != nil
		v.OnStateChange(func(state host.WorkerState) {
			if state == host.StateInstalled && hadController {
				c.emit(StateUpdateAvailable)
			}
		})
	})
}

func (c *Controller) armUpdateChecks(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.updateEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.registrar.Update(ctx); err != nil {
					log.Printf("worker update check: %v", err)
				}
			}
		}
	}()
}

// Unregister awaits worker readiness and removes the registration. The
// returned bool reports whether the platform capability existed at all,
// independent of whether a worker was registered.
func (c *Controller) Unregister(ctx context.Context) (bool, error) {
	if c.registrar == nil {
		return false, nil
	}
	if _, err := c.registrar.Ready(ctx); err != nil {
		return true, fmt.Errorf("await worker readiness: %w", err)
	}
	if _, err := c.registrar.Unregister(ctx); err != nil {
		return true, fmt.Errorf("unregister worker: %w", err)
	}
	return true, nil
}

func (c *Controller) setRegistration(reg *host.Registration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reg = reg
}

func (c *Controller) emit(state State) {
	c.mu.Lock()
	c.current = state
	observers := make([]func(State), len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()
	for _, fn := range observers {
		fn(state)
	}
}

// secureOrigin reports whether origin is HTTPS or plain HTTP on a loopback
// host.
func secureOrigin(origin string) bool {
	parsed, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "https":
		return true
	case "http":
		return loopbackHost(parsed.Hostname())
	default:
		return false
	}
}

func loopbackHost(hostname string) bool {
	hostname = strings.ToLower(hostname)
	if hostname == "localhost" || hostname == "::1" {
		return true
	}
	return strings.HasPrefix(hostname, "127.")
}
