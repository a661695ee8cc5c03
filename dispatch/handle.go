package dispatch

// handle is a single-use completion baton. Each scheduled unit of work
// receives the previous unit's handle and owns a fresh one; the resulting
// chain is the sole ordering mechanism in the dispatcher.
type handle struct {
	done chan struct{}
}

func newHandle() *handle { return &handle{done: make(chan struct{})} }

// resolvedHandle seeds the chain with an already-completed handle.
func resolvedHandle() *handle {
	h := newHandle()
	h.complete()
	return h
}

// complete resolves the handle. It must be called exactly once.
func (h *handle) complete() { close(h.done) }

// wait blocks until the handle resolves. Every scheduled unit completes its
// handle on exit, so waiting cannot deadlock.
func (h *handle) wait() { <-h.done }
