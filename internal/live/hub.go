// Package live holds the process-wide observable state fed by the
// ingestion pipeline: current reading, connection status and the
// unacknowledged trigger count.
package live

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/caiomathol/weatherwatch/internal/domain"
)

// Hub is a last-value-cache with notify-on-change for three slots.
// Subscribers are called synchronously in registration order; a
// panicking subscriber is isolated so the rest still get the update.
// The pipeline is the only writer.
type Hub struct {
	mu sync.Mutex

	reading     *domain.Reading
	connected   bool
	unackCount  int
	readingSubs []func(domain.Reading)
	statusSubs  []func(bool)
	countSubs   []func(int)
}

func NewHub() *Hub {
	return &Hub{}
}

// SubscribeReading registers a callback for current-reading updates.
func (h *Hub) SubscribeReading(fn func(domain.Reading)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readingSubs = append(h.readingSubs, fn)
}

// SubscribeStatus registers a callback for connection-status updates.
func (h *Hub) SubscribeStatus(fn func(bool)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statusSubs = append(h.statusSubs, fn)
}

// SubscribeCount registers a callback for unacknowledged-count updates.
func (h *Hub) SubscribeCount(fn func(int)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.countSubs = append(h.countSubs, fn)
}

// SetReading replaces the current reading. Last write wins, no history.
func (h *Hub) SetReading(r domain.Reading) {
	h.mu.Lock()
	h.reading = &r
	subs := h.readingSubs
	h.mu.Unlock()

	for _, fn := range subs {
		notify(func() { fn(r) })
	}
}

func (h *Hub) SetConnectionStatus(connected bool) {
	h.mu.Lock()
	h.connected = connected
	subs := h.statusSubs
	h.mu.Unlock()

	for _, fn := range subs {
		notify(func() { fn(connected) })
	}
}

// SetUnacknowledgedCount publishes the trigger count. Negative values
// are clamped to zero.
func (h *Hub) SetUnacknowledgedCount(n int) {
	if n < 0 {
		n = 0
	}
	h.mu.Lock()
	h.unackCount = n
	subs := h.countSubs
	h.mu.Unlock()

	for _, fn := range subs {
		notify(func() { fn(n) })
	}
}

// CurrentReading returns the last published reading, if any.
func (h *Hub) CurrentReading() (domain.Reading, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.reading == nil {
		return domain.Reading{}, false
	}
	return *h.reading, true
}

func (h *Hub) ConnectionStatus() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

func (h *Hub) UnacknowledgedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.unackCount
}

// Reset clears all slots back to their initial values. Called on
// disconnect or logout. Subscribers are not notified.
func (h *Hub) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reading = nil
	h.connected = false
	h.unackCount = 0
}

func notify(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("live state subscriber panicked")
		}
	}()
	fn()
}
