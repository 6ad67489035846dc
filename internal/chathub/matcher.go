package chathub

import (
	"sync"

	"strangerly/backend/internal/metrics"
	"strangerly/backend/internal/models"
)

// Departure describes a pair room that lost one side. Partner is the
// remaining connection, already reset to idle, that should get partner:left.
type Departure struct {
	UserID  string
	Partner string
	Room    string
}

// MatchResult is the outcome of RequestMatch or Skip.
type MatchResult struct {
	Queued       bool
	Matched      bool
	Bucket       string
	Room         string
	Partner      string
	Participants []string
	Left         *Departure
}

// JoinResult is the outcome of Join.
type JoinResult struct {
	Joined bool
	Room   string
	Left   *Departure
}

// Notifier receives the outcome of each transition while the matcher lock is
// still held, so deliveries to a connection follow the order of its state
// changes. Implementations must not block or call back into the matcher.
type Notifier interface {
	Queued(connID string)
	Matched(res MatchResult)
	PartnerLeft(dep Departure)
}

// MatcherService owns the waiting buckets. Its mutex is the transition lock:
// every status or room change of a connection happens while holding it, which
// makes matching atomic with respect to joins, leaves and disconnects.
// Lock order is matcher, then presence.
type MatcherService struct {
	mu       sync.Mutex
	presence *Presence
	queues   map[string][]string
	notify   Notifier
}

func NewMatcherService(p *Presence) *MatcherService {
	queues := make(map[string][]string, len(models.Genders))
	for _, g := range models.Genders {
		queues[g] = nil
	}
	return &MatcherService{presence: p, queues: queues}
}

// SetNotifier installs n; nil disables notifications.
func (m *MatcherService) SetNotifier(n Notifier) {
	m.mu.Lock()
	m.notify = n
	m.mu.Unlock()
}

// RequestMatch pairs connID with the earliest valid waiter in the pref bucket,
// or enqueues it. A connection already waiting stays where it is.
func (m *MatcherService) RequestMatch(connID, pref string) MatchResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchLocked(connID, models.NormalizeGender(pref))
}

// Skip leaves the current pairing and searches again with the last preference.
func (m *MatcherService) Skip(connID string) MatchResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.presence.Get(connID)
	if !ok {
		return MatchResult{}
	}
	return m.matchLocked(connID, models.NormalizeGender(u.Pref))
}

// CancelWait removes connID from its bucket. Reports whether it was waiting.
func (m *MatcherService) CancelWait(connID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := m.dequeueLocked(connID)
	u, ok := m.presence.Get(connID)
	if ok && u.Status == models.StatusWaiting {
		m.presence.SetStatus(connID, models.StatusIdle)
		removed = true
	}
	return removed
}

// Join moves connID into a named room, cancelling any wait and leaving any
// previous room. Pair rooms can't be joined this way.
func (m *MatcherService) Join(connID, room string) JoinResult {
	if room == "" || models.IsPairRoom(room) {
		return JoinResult{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.presence.Get(connID)
	if !ok {
		return JoinResult{}
	}
	if u.Room == room {
		return JoinResult{Joined: true, Room: room}
	}

	m.dequeueLocked(connID)
	left := m.leaveRoomLocked(u)
	m.presence.update(connID, func(u *models.User) {
		u.Room = room
		u.Status = models.StatusIdle
	})
	return JoinResult{Joined: true, Room: room, Left: left}
}

// Leave takes connID out of room. A waiting connection has its wait cancelled
// whatever room it names. Returns false when there was nothing to leave.
func (m *MatcherService) Leave(connID, room string) (bool, *Departure) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.presence.Get(connID)
	if !ok {
		return false, nil
	}
	if u.Status == models.StatusWaiting {
		m.dequeueLocked(connID)
		m.presence.SetStatus(connID, models.StatusIdle)
		return true, nil
	}
	if room == "" || u.Room != room {
		return false, nil
	}
	return true, m.leaveRoomLocked(u)
}

// Drop removes every trace of connID: bucket entry, room and presence.
// The returned user is its last known state.
func (m *MatcherService) Drop(connID string) (models.User, *Departure, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dequeueLocked(connID)
	u, ok := m.presence.Get(connID)
	if !ok {
		return models.User{}, nil, false
	}
	left := m.leaveRoomLocked(u)
	m.presence.Remove(connID)
	return u, left, true
}

// QueueLen returns the number of entries in bucket, stale ones included.
func (m *MatcherService) QueueLen(bucket string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues[models.NormalizeGender(bucket)])
}

func (m *MatcherService) matchLocked(connID, pref string) MatchResult {
	u, ok := m.presence.Get(connID)
	if !ok {
		return MatchResult{}
	}
	if u.Status == models.StatusWaiting {
		if m.notify != nil {
			m.notify.Queued(connID)
		}
		return MatchResult{Queued: true, Bucket: u.Pref}
	}

	left := m.leaveRoomLocked(u)
	m.presence.update(connID, func(u *models.User) {
		u.Status = models.StatusWaiting
		u.Pref = pref
	})

	queue := m.queues[pref]
	for len(queue) > 0 {
		candidate := queue[0]
		queue = queue[1:]

		if candidate == connID {
			continue
		}
		cu, ok := m.presence.Get(candidate)
		if !ok || cu.Status != models.StatusWaiting || cu.Pref != pref {
			continue
		}

		m.queues[pref] = queue
		room := models.NewPairRoomID()
		for _, id := range []string{candidate, connID} {
			m.presence.update(id, func(u *models.User) {
				u.Room = room
				u.Status = models.StatusChatting
			})
		}
		metrics.MatchesTotal.Inc()

		res := MatchResult{
			Matched:      true,
			Bucket:       pref,
			Room:         room,
			Partner:      candidate,
			Participants: []string{candidate, connID},
			Left:         left,
		}
		if m.notify != nil {
			m.notify.Matched(res)
		}
		return res
	}

	m.queues[pref] = append(queue, connID)
	metrics.QueuedTotal.WithLabelValues(pref).Inc()
	if m.notify != nil {
		m.notify.Queued(connID)
	}
	return MatchResult{Queued: true, Bucket: pref, Left: left}
}

// leaveRoomLocked clears u's room. For a pair room the partner is reset too.
func (m *MatcherService) leaveRoomLocked(u models.User) *Departure {
	if u.Room == "" {
		return nil
	}
	room := u.Room
	m.presence.update(u.ConnID, func(u *models.User) {
		u.Room = ""
		u.Status = models.StatusIdle
	})
	if !models.IsPairRoom(room) {
		return nil
	}

	var left *Departure
	for _, partner := range m.presence.Members(room) {
		m.presence.update(partner, func(u *models.User) {
			u.Room = ""
			u.Status = models.StatusIdle
		})
		left = &Departure{UserID: u.ConnID, Partner: partner, Room: room}
		if m.notify != nil {
			m.notify.PartnerLeft(*left)
		}
	}
	return left
}

func (m *MatcherService) dequeueLocked(connID string) bool {
	removed := false
	for bucket, queue := range m.queues {
		kept := queue[:0]
		for _, id := range queue {
			if id == connID {
				removed = true
				continue
			}
			kept = append(kept, id)
		}
		m.queues[bucket] = kept
	}
	return removed
}
