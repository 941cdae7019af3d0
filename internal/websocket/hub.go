package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/tullo/chatdesk/internal/models"
)

// EventStoreChange is pushed to viewers after every store mutation.
const EventStoreChange = "store_change"

// Hub maintains the set of attached viewers and fans store changes out to them
type Hub struct {
	// Attached viewers
	viewers map[uuid.UUID]*Viewer

	// Frames to fan out
	broadcast chan []byte

	register   chan *Viewer
	unregister chan *Viewer

	// Closed when Run returns
	done chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		viewers:    make(map[uuid.UUID]*Viewer),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Viewer),
		unregister: make(chan *Viewer),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case v := <-h.register:
			h.mu.Lock()
			h.viewers[v.id] = v
			h.mu.Unlock()
			log.Printf("[hub] viewer attached: %s", v.id)

		case v := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.viewers[v.id]; ok {
				delete(h.viewers, v.id)
				close(v.send)
			}
			h.mu.Unlock()
			log.Printf("[hub] viewer detached: %s", v.id)

		case frame := <-h.broadcast:
			h.mu.Lock()
			for id, v := range h.viewers {
				select {
				case v.send <- frame:
				default:
					// slow viewer
					close(v.send)
					delete(h.viewers, id)
				}
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for id, v := range h.viewers {
				close(v.send)
				delete(h.viewers, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// attach registers v unless the hub has stopped
func (h *Hub) attach(v *Viewer) bool {
	select {
	case h.register <- v:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) detach(v *Viewer) {
	select {
	case h.unregister <- v:
	case <-h.done:
	}
}

// Publish queues an event for every attached viewer. It never blocks; when
// the queue is full the event is dropped.
func (h *Hub) Publish(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", event, err)
	}
	frame, err := json.Marshal(models.WSMessage{Event: event, Payload: data})
	if err != nil {
		return fmt.Errorf("failed to encode %s frame: %w", event, err)
	}

	select {
	case h.broadcast <- frame:
	default:
		log.Printf("[hub] broadcast queue full, dropping %s", event)
	}
	return nil
}

// Count returns the number of attached viewers
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.viewers)
}
