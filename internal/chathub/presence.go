package chathub

import (
	"sort"
	"sync"

	"strangerly/backend/internal/models"
)

// Presence is the registry of every authenticated connection.
// Lookups return copies; callers must re-read instead of caching.
// Unknown connection IDs are silently ignored, since disconnect races are expected.
type Presence struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func NewPresence() *Presence {
	return &Presence{users: make(map[string]*models.User)}
}

// Register adds connID or refreshes its declared identity. A re-auth keeps the
// current room, status and preference so an active pairing isn't orphaned.
func (p *Presence) Register(connID, identity, gender, displayName string) models.User {
	if identity == "" {
		identity = connID
	}
	if displayName == "" {
		displayName = "Stranger"
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[connID]
	if !ok {
		u = &models.User{ConnID: connID, Pref: models.GenderAny, Status: models.StatusIdle}
		p.users[connID] = u
	}
	u.UserID = identity
	u.Gender = models.NormalizeGender(gender)
	u.DisplayName = displayName
	return *u
}

func (p *Presence) Get(connID string) (models.User, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	u, ok := p.users[connID]
	if !ok {
		return models.User{}, false
	}
	return *u, true
}

// SetRoom sets the room of connID ("" clears it).
func (p *Presence) SetRoom(connID, room string) bool {
	return p.update(connID, func(u *models.User) { u.Room = room })
}

func (p *Presence) SetStatus(connID string, status models.Status) bool {
	return p.update(connID, func(u *models.User) { u.Status = status })
}

// Remove deletes connID and returns the last state it had.
func (p *Presence) Remove(connID string) (models.User, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[connID]
	if !ok {
		return models.User{}, false
	}
	delete(p.users, connID)
	return *u, true
}

// Snapshot returns every user ordered by connection ID.
func (p *Presence) Snapshot() []models.User {
	p.mu.RLock()
	out := make([]models.User, 0, len(p.users))
	for _, u := range p.users {
		out = append(out, *u)
	}
	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ConnID < out[j].ConnID })
	return out
}

// Members lists the connections currently in room, ordered by connection ID.
func (p *Presence) Members(room string) []string {
	if room == "" {
		return nil
	}

	p.mu.RLock()
	var ids []string
	for id, u := range p.users {
		if u.Room == room {
			ids = append(ids, id)
		}
	}
	p.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

func (p *Presence) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.users)
}

func (p *Presence) update(connID string, fn func(*models.User)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[connID]
	if !ok {
		return false
	}
	fn(u)
	return true
}
