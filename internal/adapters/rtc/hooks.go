package rtc

import "sync"

// closeHook is a subscribe-once close notification. Subscribing after the
// hook already fired invokes the callback immediately.
type closeHook struct {
	mu    sync.Mutex
	fired bool
	fns   []func()
}

func newCloseHook() *closeHook {
	return &closeHook{}
}

func (h *closeHook) subscribe(fn func()) {
	h.mu.Lock()
	if h.fired {
		h.mu.Unlock()
		fn()
		return
	}
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

func (h *closeHook) fire() {
	h.mu.Lock()
	if h.fired {
		h.mu.Unlock()
		return
	}
	h.fired = true
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
