package chathub

import (
	"sync"

	"strangerly/backend/internal/logger"
	"strangerly/backend/internal/metrics"
	"strangerly/backend/internal/models"
)

// Relay fans outbound events out to client send channels.
// Room membership comes from Presence. Sends never block: a client whose
// buffer is full misses the event.
type Relay struct {
	mu       sync.RWMutex
	clients  map[string]Client
	presence *Presence
}

func NewRelay(p *Presence) *Relay {
	return &Relay{
		clients:  make(map[string]Client),
		presence: p,
	}
}

// Add registers a client for delivery. A client already known under the same
// connection ID is replaced and closed.
func (r *Relay) Add(c Client) {
	r.mu.Lock()
	old, ok := r.clients[c.GetConnID()]
	r.clients[c.GetConnID()] = c
	if ok && old != c {
		old.Close()
	}
	r.mu.Unlock()

	if !ok {
		metrics.ConnectionsActive.Inc()
	}
}

// Remove unregisters and closes the client. Reports whether it was present.
func (r *Relay) Remove(connID string) bool {
	r.mu.Lock()
	c, ok := r.clients[connID]
	if ok {
		delete(r.clients, connID)
		c.Close()
	}
	r.mu.Unlock()

	if ok {
		metrics.ConnectionsActive.Dec()
	}
	return ok
}

// Unicast delivers one event to connID. Returns false when it was dropped.
func (r *Relay) Unicast(connID, event string, data any) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[connID]
	if !ok {
		return false
	}
	return r.send(c, models.Outbound{Event: event, Data: data})
}

// Broadcast delivers to every current member of room and returns how many
// clients accepted the event.
func (r *Relay) Broadcast(room, event string, data any) int {
	members := r.presence.Members(room)
	if len(members) == 0 {
		return 0
	}
	msg := models.Outbound{Event: event, Data: data}

	r.mu.RLock()
	defer r.mu.RUnlock()

	sent := 0
	for _, id := range members {
		if c, ok := r.clients[id]; ok && r.send(c, msg) {
			sent++
		}
	}
	return sent
}

// BroadcastAll delivers to every connected client, authenticated or not.
func (r *Relay) BroadcastAll(event string, data any) int {
	msg := models.Outbound{Event: event, Data: data}

	r.mu.RLock()
	defer r.mu.RUnlock()

	sent := 0
	for _, c := range r.clients {
		if r.send(c, msg) {
			sent++
		}
	}
	return sent
}

func (r *Relay) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// send must be called with r.mu held so it can't race with Close.
func (r *Relay) send(c Client, msg models.Outbound) bool {
	select {
	case c.GetSendChannel() <- msg:
		return true
	default:
		logger.L().Debug().
			Str(logger.FieldConnID, c.GetConnID()).
			Str(logger.FieldEvent, msg.Event).
			Msg("send buffer full, event dropped")
		return false
	}
}
