package embedding

import (
	"sync"
	"time"
)

// slidingWindow bounds the number of provider calls inside a rolling time
// window. The state is process-wide and shared by every caller of the client;
// it resets only on process restart. Horizontally scaled deployments each
// carry their own budget (documented single-instance limitation).
type slidingWindow struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	calls  []time.Time
	now    func() time.Time // injectable for tests
}

func newSlidingWindow(max int, window time.Duration) *slidingWindow {
	return &slidingWindow{
		max:    max,
		window: window,
		now:    time.Now,
	}
}

// allow records one call if the budget permits and reports whether it did.
func (w *slidingWindow) allow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	cutoff := now.Add(-w.window)

	// Drop timestamps that have aged out of the window.
	i := 0
	for i < len(w.calls) && w.calls[i].Before(cutoff) {
		i++
	}
	w.calls = w.calls[i:]

	if len(w.calls) >= w.max {
		return false
	}

	w.calls = append(w.calls, now)
	return true
}
