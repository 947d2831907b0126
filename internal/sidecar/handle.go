package sidecar

import "sync"

// Handle tracks the identity of the spawned backend process. It is written
// once, on successful spawn, and shared with any component that may need the
// PID later (explicit termination, diagnostics). Absence means the backend
// has not been started or is not tracked.
type Handle struct {
	mu  sync.Mutex
	pid int
	set bool
}

// NewHandle returns an empty handle.
func NewHandle() *Handle {
	return &Handle{}
}

// Set records the backend PID. At most one process is tracked at a time.
func (h *Handle) Set(pid int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pid = pid
	h.set = true
}

// Get returns the tracked PID and whether one has been recorded.
func (h *Handle) Get() (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pid, h.set
}
