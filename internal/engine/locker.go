package engine

import "sync"

// handleLocks serializes message processing per user handle. The stored
// conversation state is read-modify-write, so two messages from the same
// handle must never interleave between the state read and the state write.
// Entries are never removed; the map is bounded by the number of distinct
// handles seen by this process.
type handleLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newHandleLocks() *handleLocks {
	return &handleLocks{locks: make(map[string]*sync.Mutex)}
}

// get returns the mutex for the given handle, creating it on first use.
func (h *handleLocks) get(handle string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()

	l, ok := h.locks[handle]
	if !ok {
		l = &sync.Mutex{}
		h.locks[handle] = l
	}
	return l
}
