package abi

import "sync"

// PapiSDEHandle is a no-op-by-default adapter over the four operations
// original_source/include/papi_sde.h exposes, kept as an interface point
// only per spec.md §1 ("PAPI software-defined events: noted as an interface
// point only, not implemented"). It lets a caller wire in a real PAPI SDE
// backend later without touching any other package.
type PapiSDEHandle struct {
	mu       sync.Mutex
	name     string
	counters map[string]*uint64
	created  bool
}

// NewPapiSDEHandle creates a handle identified by name, mirroring
// papi_sde_init(name).
func NewPapiSDEHandle(name string) *PapiSDEHandle {
	return &PapiSDEHandle{name: name, counters: make(map[string]*uint64), created: true}
}

// RegisterCounter exposes a named counter through the handle, mirroring
// papi_sde_register_counter_cb. The default implementation simply records
// the pointer; nothing reads it until a real PAPI SDE backend is wired in.
func (h *PapiSDEHandle) RegisterCounter(name string, value *uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counters[name] = value
}

// Describe mirrors papi_sde_describe_counter; the no-op adapter discards the
// description and reports whether a counter named name is registered.
func (h *PapiSDEHandle) Describe(name, description string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.counters[name]
	return ok
}

// Counter returns the current value of a previously registered counter, or
// false if none by that name was registered.
func (h *PapiSDEHandle) Counter(name string) (uint64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.counters[name]
	if !ok {
		return 0, false
	}
	return *p, true
}

// Destroy mirrors papi_sde_shutdown; the no-op adapter just clears state.
func (h *PapiSDEHandle) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counters = make(map[string]*uint64)
	h.created = false
}
