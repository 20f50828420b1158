package registry

import (
	"errors"
	"sync"

	"github.com/samber/lo"

	"github.com/anicoll/microtemp-integration/internal/pkg/model"
)

var ErrNotFound = errors.New("thermostat not found in registry")

type entry struct {
	thermostat model.Thermostat
	dirty      bool
}

// Registry holds the current state of every known thermostat keyed by serial
// number, together with a per-device pending-write flag. It is shared between
// the feed handler, the command handler and the reconciliation loop; all
// access goes through the methods below so the flag can never be read and
// cleared non-atomically against a concurrent mutation.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

// Upsert inserts or fully replaces the thermostat at its serial number.
// Vendor-confirmed state is authoritative, so the pending-write flag is
// cleared: a replacement from a fetch or a push notification leaves nothing
// to flush.
func (r *Registry) Upsert(t model.Thermostat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[t.SerialNumber] = &entry{thermostat: t}
}

// MarkDirty applies mutate to the thermostat in place and sets the
// pending-write flag. Returns ErrNotFound for unknown serial numbers.
func (r *Registry) MarkDirty(serial string, mutate func(*model.Thermostat)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[serial]
	if !ok {
		return ErrNotFound
	}
	mutate(&e.thermostat)
	e.dirty = true
	return nil
}

// TakeDirtySnapshot atomically reads and clears the pending-write flag,
// returning the current state if the flag was set. A mutation racing with the
// snapshot either lands before the clear (and is carried by this snapshot) or
// after it (and sets the flag again for the next cycle); it is never lost.
func (r *Registry) TakeDirtySnapshot(serial string) (model.Thermostat, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[serial]
	if !ok || !e.dirty {
		return model.Thermostat{}, false
	}
	e.dirty = false
	return e.thermostat, true
}

// Get returns a copy of the thermostat for serial.
func (r *Registry) Get(serial string) (model.Thermostat, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[serial]
	if !ok {
		return model.Thermostat{}, false
	}
	return e.thermostat, true
}

// Serials returns the serial numbers of all known thermostats.
func (r *Registry) Serials() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Keys(r.entries)
}

// ForEach calls fn with a copy of every thermostat. The lock is not held
// during fn, so fn may call back into the registry.
func (r *Registry) ForEach(fn func(model.Thermostat)) {
	r.mu.Lock()
	thermostats := make([]model.Thermostat, 0, len(r.entries))
	for _, e := range r.entries {
		thermostats = append(thermostats, e.thermostat)
	}
	r.mu.Unlock()

	for _, t := range thermostats {
		fn(t)
	}
}

// Len returns the number of known thermostats.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
