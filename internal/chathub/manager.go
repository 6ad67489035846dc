package chathub

import (
	"context"
	"strings"
	"unicode/utf8"

	"strangerly/backend/internal/config"
	"strangerly/backend/internal/logger"
	"strangerly/backend/internal/metrics"
	"strangerly/backend/internal/models"
	"strangerly/backend/internal/moderation"
	"strangerly/backend/internal/ratelimit"
	"strangerly/backend/internal/storage"
)

// ManagerService is the per-event entry point of the hub. Each client's read
// pump calls HandleEvent serially, so events of one connection never overlap;
// different connections run concurrently and meet in the matcher lock.
type ManagerService struct {
	Presence *Presence
	Matcher  *MatcherService
	Relay    *Relay

	Limiter *ratelimit.Limiter
	Filter  *moderation.Filter
	History *storage.History

	HistoryLimit int
}

// NewManagerService wires a hub around the given collaborators.
// Nil collaborators fall back to defaults; a nil history disables persistence.
func NewManagerService(limiter *ratelimit.Limiter, filter *moderation.Filter, history *storage.History, historyLimit int) *ManagerService {
	if history == nil {
		history = storage.NewHistory(nil, storage.HistoryOptions{})
	}
	if historyLimit <= 0 {
		historyLimit = config.DefaultHistoryLimit
	}
	if limiter == nil {
		limiter = ratelimit.New(config.DefaultRateMaxMessages, config.DefaultRateWindow)
	}
	if filter == nil {
		filter = moderation.NewFilter(config.DefaultBannedWords, "")
	}

	presence := NewPresence()
	relay := NewRelay(presence)
	matcher := NewMatcherService(presence)
	matcher.SetNotifier(relayNotifier{relay: relay})

	return &ManagerService{
		Presence:     presence,
		Matcher:      matcher,
		Relay:        relay,
		Limiter:      limiter,
		Filter:       filter,
		History:      history,
		HistoryLimit: historyLimit,
	}
}

// relayNotifier turns matcher transitions into events. It runs under the
// matcher lock; relay sends never block.
type relayNotifier struct {
	relay *Relay
}

func (n relayNotifier) Queued(connID string) {
	n.relay.Unicast(connID, models.EventQueued, models.Queued{})
}

// Matched goes to each participant directly rather than through the room,
// since a concurrent leave may already have emptied it by the time it is read.
func (n relayNotifier) Matched(res MatchResult) {
	msg := models.Matched{Room: res.Room, Participants: res.Participants}
	for _, id := range res.Participants {
		n.relay.Unicast(id, models.EventMatched, msg)
	}
}

func (n relayNotifier) PartnerLeft(dep Departure) {
	n.relay.Unicast(dep.Partner, models.EventPartnerLeft, models.PartnerLeft{UserID: dep.UserID, Room: dep.Room})
}

// Register attaches a freshly accepted connection. It stays unauthenticated
// until it sends auth, but already receives roster broadcasts.
func (m *ManagerService) Register(c Client) {
	m.Relay.Add(c)
	logger.L().Debug().Str(logger.FieldConnID, c.GetConnID()).Msg("client connected")
}

// HandleMessage decodes one raw frame and dispatches it.
func (m *ManagerService) HandleMessage(ctx context.Context, connID string, raw []byte) {
	event, payload, err := models.DecodeInbound(raw)
	if err != nil {
		logger.Ctx(ctx).Debug().Err(err).
			Str(logger.FieldConnID, connID).
			Msg("skipping malformed frame")
		return
	}
	m.HandleEvent(ctx, connID, event, payload)
}

// HandleEvent applies one decoded inbound event for connID.
// Anything other than auth from an unknown connection is ignored.
func (m *ManagerService) HandleEvent(ctx context.Context, connID, event string, payload any) {
	if event != models.EventAuth && event != models.EventDisconnect {
		if _, ok := m.Presence.Get(connID); !ok {
			return
		}
	}

	switch p := payload.(type) {
	case *models.AuthPayload:
		m.handleAuth(ctx, connID, p)
	case *models.FindPayload:
		m.emitMatch(ctx, connID, m.Matcher.RequestMatch(connID, p.GenderPref))
	case *models.SkipPayload:
		m.emitMatch(ctx, connID, m.Matcher.Skip(connID))
	case *models.RoomPayload:
		if event == models.EventJoinRoom {
			m.handleJoin(ctx, connID, p.Room)
		} else {
			m.handleLeave(ctx, connID, p.Room)
		}
	case *models.ChatPayload:
		m.handleChat(ctx, connID, event, p)
	default:
		if event == models.EventDisconnect {
			m.Disconnect(ctx, connID)
		}
	}
}

func (m *ManagerService) handleAuth(ctx context.Context, connID string, p *models.AuthPayload) {
	gender := p.Gender
	if gender == "" {
		gender = p.GenderPref
	}
	identity := strings.TrimSpace(p.ID)
	if identity == "" {
		identity = strings.TrimSpace(p.Identity)
	}
	u := m.Presence.Register(connID, identity, gender, strings.TrimSpace(p.DisplayName))
	logger.Ctx(ctx).Info().
		Str(logger.FieldConnID, connID).
		Str("user_id", u.UserID).
		Msg("client authenticated")

	m.Relay.Unicast(connID, models.EventAuthOK, models.AuthOK{ConnectionID: connID, UserID: u.UserID})
	m.broadcastRoster()
}

// emitMatch follows up a find or skip. The matcher has already delivered
// random:queued, random:matched and partner:left.
func (m *ManagerService) emitMatch(ctx context.Context, connID string, res MatchResult) {
	if !res.Matched && !res.Queued {
		return
	}
	if res.Matched {
		logger.Ctx(ctx).Info().
			Str(logger.FieldConnID, connID).
			Str(logger.FieldPeer, res.Partner).
			Str(logger.FieldRoom, res.Room).
			Msg("pair matched")
	}
	m.broadcastRoster()
}

func (m *ManagerService) handleJoin(ctx context.Context, connID, room string) {
	res := m.Matcher.Join(connID, strings.TrimSpace(room))
	if !res.Joined {
		return
	}

	m.Relay.Broadcast(res.Room, models.EventRoomJoined, models.RoomJoined{UserID: connID, Room: res.Room})
	msgs := m.History.LoadRecent(ctx, res.Room, m.HistoryLimit)
	m.Relay.Unicast(connID, models.EventHistory, models.History{Room: res.Room, Messages: msgs})
	m.broadcastRoster()
}

func (m *ManagerService) handleLeave(ctx context.Context, connID, room string) {
	left, dep := m.Matcher.Leave(connID, strings.TrimSpace(room))
	if !left {
		return
	}
	if dep != nil {
		logger.Ctx(ctx).Debug().
			Str(logger.FieldConnID, connID).
			Str(logger.FieldPeer, dep.Partner).
			Msg("left pair room")
	}
	m.broadcastRoster()
}

func (m *ManagerService) handleChat(ctx context.Context, connID, event string, p *models.ChatPayload) {
	u, ok := m.Presence.Get(connID)
	if !ok || p.Room == "" || u.Room != p.Room {
		return
	}
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return
	}
	if utf8.RuneCountInString(text) > config.MaxTextLength {
		text = string([]rune(text)[:config.MaxTextLength])
	}

	if ok, retry := m.Limiter.Allow(connID); !ok {
		metrics.MessagesTotal.WithLabelValues("rate_limited").Inc()
		logger.Ctx(ctx).Debug().
			Str(logger.FieldConnID, connID).
			Dur("retry_after", retry).
			Msg("message rate limited")
		m.Relay.Unicast(connID, models.EventRateLimit, models.RateLimited{RetryAfterMs: retry.Milliseconds()})
		return
	}

	msg := models.Message{
		RoomID:    p.Room,
		SenderID:  connID,
		Text:      m.Filter.Sanitize(text),
		Timestamp: models.NowMillis(),
	}
	m.Relay.Broadcast(msg.RoomID, event, models.ChatOut{UserID: connID, Text: msg.Text, TS: msg.Timestamp})
	metrics.MessagesTotal.WithLabelValues("relayed").Inc()

	m.History.AppendMessage(msg)
}

// Disconnect tears a connection down. Safe to call more than once.
func (m *ManagerService) Disconnect(ctx context.Context, connID string) {
	_, dep, known := m.Matcher.Drop(connID)
	m.Limiter.Forget(connID)
	attached := m.Relay.Remove(connID)
	if !known && !attached {
		return
	}

	l := logger.Ctx(ctx).Debug().Str(logger.FieldConnID, connID)
	if dep != nil {
		l = l.Str(logger.FieldPeer, dep.Partner)
	}
	l.Msg("client disconnected")
	m.Relay.BroadcastAll(models.EventUserDisconnected, models.UserDisconnected{ConnectionID: connID})
	m.broadcastRoster()
}

func (m *ManagerService) broadcastRoster() {
	users := m.Presence.Snapshot()
	list := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		list = append(list, u.Summary())
	}
	metrics.UsersOnline.Set(float64(len(list)))
	m.Relay.BroadcastAll(models.EventOnlineList, list)
}
