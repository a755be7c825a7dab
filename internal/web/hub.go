package web

import (
	"sync"

	"mdstudio/internal/model"
)

// eventHub fans studio events out to connected streams. A slow subscriber drops
// events rather than blocking the editor; streams re-render from current state.
type eventHub struct {
	mu     sync.Mutex
	subs   map[chan model.Event]struct{}
	closed bool
}

func newEventHub() *eventHub {
	return &eventHub{subs: map[chan model.Event]struct{}{}}
}

func (h *eventHub) subscribe() (ch chan model.Event, cancel func()) {
	ch = make(chan model.Event, 16)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
			h.mu.Unlock()
		})
	}
}

func (h *eventHub) broadcast(ev model.Event) {
	h.mu.Lock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	h.mu.Unlock()
}

func (h *eventHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// close ends every stream.
func (h *eventHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
