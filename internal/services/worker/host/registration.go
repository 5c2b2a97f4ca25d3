package host

import "sync"

// Registration tracks the worker versions serving one scope: at most one
// version installing, one installed and waiting, and one active.
type Registration struct {
	scope string

	mu          sync.Mutex
	installing  *Version
	waiting     *Version
	active      *Version
	updateFound []func(*Version)
}

func newRegistration(scope string) *Registration {
	return &Registration{scope: scope}
}

// Scope returns the request scope this registration serves.
func (r *Registration) Scope() string {
	if r == nil {
		return ""
	}
	return r.scope
}

// Installing returns the version currently installing, if any.
func (r *Registration) Installing() *Version {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.installing
}

// Waiting returns the installed version waiting to activate, if any.
func (r *Registration) Waiting() *Version {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waiting
}

// Active returns the version serving fetches, if any.
func (r *Registration) Active() *Version {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// OnUpdateFound registers fn to run whenever a new version starts
// installing under this registration.
func (r *Registration) OnUpdateFound(fn func(*Version)) {
	if r == nil || fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateFound = append(r.updateFound, fn)
}

func (r *Registration) startInstalling(v *Version) {
	r.mu.Lock()
	r.installing = v
	listeners := make([]func(*Version), len(r.updateFound))
	copy(listeners, r.updateFound)
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(v)
	}
}

func (r *Registration) finishInstalling(v *Version, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.installing == v {
		r.installing = nil
	}
	if ok {
		r.waiting = v
	}
}

// promote moves v into the active slot and returns the version it replaced.
func (r *Registration) promote(v *Version) *Version {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.waiting == v {
		r.waiting = nil
	}
	old := r.active
	r.active = v
	return old
}

func (r *Registration) demote(v *Version) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == v {
		r.active = nil
	}
}

// detach empties every slot and returns the versions that were present.
func (r *Registration) detach() []*Version {
	r.mu.Lock()
	defer r.mu.Unlock()
	var versions []*Version
	for _, v := range []*Version{r.installing, r.waiting, r.active} {
		if v != nil {
			versions = append(versions, v)
		}
	}
	r.installing, r.waiting, r.active = nil, nil, nil
	return versions
}
