// Package ws re-broadcasts live state over websockets so dashboards
// can subscribe to the hub's slots from outside the process.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/caiomathol/weatherwatch/internal/domain"
	"github.com/caiomathol/weatherwatch/internal/live"
)

// Bridge maintains the set of connected clients and broadcasts slot
// updates as typed JSON frames.
type Bridge struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
}

func NewBridge() *Bridge {
	return &Bridge{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Bind subscribes the bridge to all three hub slots.
func (b *Bridge) Bind(hub *live.Hub) {
	hub.SubscribeReading(func(r domain.Reading) { b.send("reading", r) })
	hub.SubscribeStatus(func(connected bool) { b.send("status", connected) })
	hub.SubscribeCount(func(n int) { b.send("alert_count", n) })
}

func (b *Bridge) Run() {
	for {
		select {
		case client := <-b.register:
			b.mu.Lock()
			b.clients[client] = true
			b.mu.Unlock()

		case client := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[client]; ok {
				delete(b.clients, client)
				close(client.send)
			}
			b.mu.Unlock()

		case message := <-b.broadcast:
			b.mu.Lock()
			for client := range b.clients {
				select {
				case client.send <- message:
				default:
					// Client stalled; drop it rather than block the feed.
					close(client.send)
					delete(b.clients, client)
				}
			}
			b.mu.Unlock()
		}
	}
}

func (b *Bridge) send(frameType string, payload any) {
	msg, err := json.Marshal(map[string]any{"type": frameType, "payload": payload})
	if err != nil {
		log.Error().Err(err).Str("type", frameType).Msg("frame marshal failed")
		return
	}
	select {
	case b.broadcast <- msg:
	default:
		// Hub subscribers must never block the publisher.
	}
}
