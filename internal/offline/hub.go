// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package offline

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Message types exchanged with UI clients.
const (
	TypeSkipWaiting  = "SKIP_WAITING"
	TypeCacheURLs    = "CACHE_URLS"
	TypeClearCache   = "CLEAR_CACHE"
	TypeNotification = "notification"
	TypeNavigate     = "navigate"
)

// Message is posted between the worker and UI clients.
type Message struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Hub is the registry of connected UI clients. Each client receives
// broadcasts on its own buffered channel.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]chan Message
	buffer  int
	log     *zap.Logger
}

// NewHub returns an empty hub whose client channels hold buffer messages.
func NewHub(buffer int, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]chan Message),
		buffer:  buffer,
		log:     log.Named("hub"),
	}
}

// Register adds a client and returns its id and message channel.
func (h *Hub) Register() (string, <-chan Message) {
	id := uuid.NewString()
	ch := make(chan Message, h.buffer)
	h.mu.Lock()
	h.clients[id] = ch
	h.mu.Unlock()
	h.log.Debug("client registered", zap.String("client", id))
	return id, ch
}

// Unregister removes a client and closes its channel.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	ch, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()
	if ok {
		close(ch)
		h.log.Debug("client unregistered", zap.String("client", id))
	}
}

// Len returns the number of registered clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast delivers msg to every client without blocking. Clients whose
// buffer is full miss the message. It returns the number of deliveries.
func (h *Hub) Broadcast(msg Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for id, ch := range h.clients {
		select {
		case ch <- msg:
			delivered++
		default:
			h.log.Warn("client too slow, message dropped",
				zap.String("client", id),
				zap.String("type", msg.Type),
			)
		}
	}
	return delivered
}
