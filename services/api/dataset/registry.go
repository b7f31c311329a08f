package dataset

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/errs"
)

// Registry holds the session's entries keyed by display name.
// Ingestion channels are the only writers; composers read snapshots.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*Entry
	now     func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry), now: time.Now}
}

// Create registers a new Pending entry. An existing name is never
// overwritten.
func (r *Registry) Create(source SourceKind, name, origin string, cfg Config) (Entry, error) {
	if name == "" {
		return Entry{}, errs.Configurationf("create", "", "dataset name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return Entry{}, errs.Configuration("create", name, errs.ErrDuplicateName)
	}
	e := &Entry{
		ID:        uuid.NewString(),
		Source:    source,
		Name:      name,
		Origin:    origin,
		State:     Pending(),
		Config:    cfg.clone(),
		CreatedAt: r.now().UTC(),
	}
	r.entries[name] = e
	r.order = append(r.order, name)
	return e.clone(), nil
}

// Advance moves an entry to a new acquisition state. The payload must be
// set exactly when the new phase is Loaded.
func (r *Registry) Advance(name string, next State, payload *Payload) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return Entry{}, errs.Configuration("advance", name, errs.ErrNotFound)
	}
	if err := checkTransition(e.State.Phase, next.Phase); err != nil {
		return Entry{}, errs.Configuration("advance", name, err)
	}
	if (next.Phase == PhaseLoaded) != (payload != nil) {
		return Entry{}, errs.Configuration("advance", name,
			fmt.Errorf("%w: payload must accompany loaded state only", errs.ErrInvalidTransition))
	}
	e.State = next
	e.Payload = payload
	return e.clone(), nil
}

func checkTransition(from, to Phase) error {
	switch {
	case from.Terminal():
		return fmt.Errorf("%w: %s is terminal", errs.ErrInvalidTransition, from)
	case to == PhasePending:
		return fmt.Errorf("%w: %s -> %s", errs.ErrInvalidTransition, from, to)
	case to < from:
		return fmt.Errorf("%w: %s -> %s", errs.ErrInvalidTransition, from, to)
	}
	return nil
}

// Configure applies fn to a copy of the entry's config and stores it.
func (r *Registry) Configure(name string, fn func(*Config)) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return Entry{}, errs.Configuration("configure", name, errs.ErrNotFound)
	}
	cfg := e.Config.clone()
	fn(&cfg)
	e.Config = cfg
	return e.clone(), nil
}

// Get returns a copy of the named entry.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Remove deletes an entry, reporting whether it existed.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[name]; !ok {
		return false
	}
	delete(r.entries, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear removes every entry (session teardown).
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make(map[string]*Entry)
	r.order = nil
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Snapshot is a consistent, read-only copy of the registry for one render
// pass. Payloads are shared; they are never mutated after loading.
type Snapshot struct {
	Entries []Entry
}

// Snapshot copies all entries in creation order.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].clone())
	}
	return Snapshot{Entries: out}
}

// Visible returns the visible entries in order.
func (s Snapshot) Visible() []Entry {
	out := make([]Entry, 0, len(s.Entries))
	for _, e := range s.Entries {
		if e.Config.Visible {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the named entry.
func (s Snapshot) Find(name string) (Entry, bool) {
	for _, e := range s.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}
