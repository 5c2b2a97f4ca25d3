package host

import (
	"sync"

	"github.com/johnqh/di-web/internal/services/worker/domain"
)

// WorkerState is one lifecycle phase of a tracked worker version.
type WorkerState string

const (
	// StateInstalling marks a version precaching its critical set.
	StateInstalling WorkerState = "installing"
	// StateInstalled marks a version installed and waiting to activate.
	StateInstalled WorkerState = "installed"
	// StateActivating marks a version purging old buckets and claiming clients.
	StateActivating WorkerState = "activating"
	// StateActivated marks the version currently serving fetches.
	StateActivated WorkerState = "activated"
	// StateRedundant marks a version that failed or was replaced.
	StateRedundant WorkerState = "redundant"
)

// Version is one worker release tracked by a registration. State
// transitions are announced to registered listeners in order.
type Version struct {
	name   string
	worker *domain.Worker

	mu        sync.Mutex
	state     WorkerState
	skip      bool
	listeners []func(WorkerState)
}

func newVersion(name string) *Version {
	return &Version{name: name, state: StateInstalling}
}

// Name returns the release version string.
func (v *Version) Name() string {
	if v == nil {
		return ""
	}
	return v.name
}

// Worker returns the cache engine backing this version.
func (v *Version) Worker() *domain.Worker {
	if v == nil {
		return nil
	}
	return v.worker
}

// State returns the current lifecycle state.
func (v *Version) State() WorkerState {
	if v == nil {
		return StateRedundant
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// OnStateChange registers fn for subsequent state transitions.
func (v *Version) OnStateChange(fn func(WorkerState)) {
	if v == nil || fn == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.listeners = append(v.listeners, fn)
}

func (v *Version) setState(state WorkerState) {
	v.mu.Lock()
	if v.state == state {
		v.mu.Unlock()
		return
	}
	v.state = state
	listeners := make([]func(WorkerState), len(v.listeners))
	copy(listeners, v.listeners)
	v.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

// requestSkip records that this version wants to activate without waiting.
func (v *Version) requestSkip() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.skip = true
}

func (v *Version) skipRequested() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.skip
}
