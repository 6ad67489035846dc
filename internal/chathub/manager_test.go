package chathub_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"strangerly/backend/internal/chathub"
	"strangerly/backend/internal/config"
	"strangerly/backend/internal/models"
	"strangerly/backend/internal/moderation"
	"strangerly/backend/internal/ratelimit"
	"strangerly/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testHub struct {
	*chathub.ManagerService
	clock *fakeClock
	ctx   context.Context
}

func createTestHub(history *storage.History) *testHub {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	limiter := ratelimit.New(config.DefaultRateMaxMessages, config.DefaultRateWindow).WithClock(clock.Now)
	filter := moderation.NewFilter(config.DefaultBannedWords, "")
	return &testHub{
		ManagerService: chathub.NewManagerService(limiter, filter, history, 10),
		clock:          clock,
		ctx:            context.Background(),
	}
}

// connect registers and authenticates a mock client, discarding its greeting.
func (h *testHub) connect(t *testing.T, id string) *MockClient {
	t.Helper()
	mc := newMockClient(id)
	h.Register(mc)
	h.HandleEvent(h.ctx, id, models.EventAuth, &models.AuthPayload{DisplayName: id})
	mc.Drain()
	return mc
}

func (h *testHub) send(id, event string, payload any) {
	h.HandleEvent(h.ctx, id, event, payload)
}

func drainAll(clients ...*MockClient) {
	for _, c := range clients {
		c.Drain()
	}
}

func pairUp(t *testing.T, h *testHub, a, b *MockClient) string {
	t.Helper()
	h.send(a.connID, models.EventFind, &models.FindPayload{GenderPref: "any"})
	h.send(b.connID, models.EventFind, &models.FindPayload{GenderPref: "any"})
	matched := a.Events(models.EventMatched)
	require.Len(t, matched, 1)
	b.Drain()
	return matched[0].Data.(models.Matched).Room
}

func TestManager_AuthReplies(t *testing.T) {
	h := createTestHub(nil)
	a := newMockClient("A")
	h.Register(a)

	h.send("A", models.EventAuth, &models.AuthPayload{ID: "alice", Gender: "female", DisplayName: "Alice"})

	msgs := a.Drain()
	require.Equal(t, []string{models.EventAuthOK, models.EventOnlineList}, eventNames(msgs))
	assert.Equal(t, models.AuthOK{ConnectionID: "A", UserID: "alice"}, msgs[0].Data)

	roster := msgs[1].Data.([]models.UserSummary)
	require.Len(t, roster, 1)
	assert.Equal(t, "alice", roster[0].ID)
	assert.Equal(t, "Alice", roster[0].DisplayName)
	assert.Equal(t, models.GenderFemale, roster[0].Gender)
}

func TestManager_EventsBeforeAuthAreIgnored(t *testing.T) {
	h := createTestHub(nil)
	a := newMockClient("A")
	h.Register(a)

	h.send("A", models.EventFind, &models.FindPayload{})
	h.send("A", models.EventJoinRoom, &models.RoomPayload{Room: "lobby"})
	h.send("A", models.EventChatMsg, &models.ChatPayload{Room: "lobby", Text: "hi"})

	assert.Empty(t, a.Drain())
	assert.Equal(t, 0, h.Matcher.QueueLen(models.GenderAny))
}

func TestManager_RandomChatEndToEnd(t *testing.T) {
	h := createTestHub(nil)
	a := h.connect(t, "A")
	b := h.connect(t, "B")
	drainAll(a, b)

	h.send("A", models.EventFind, &models.FindPayload{GenderPref: "any"})
	assert.Equal(t, []string{models.EventQueued, models.EventOnlineList}, eventNames(a.Drain()))

	h.send("B", models.EventFind, &models.FindPayload{GenderPref: "any"})
	ma := a.Events(models.EventMatched)
	mb := b.Events(models.EventMatched)
	require.Len(t, ma, 1)
	require.Len(t, mb, 1)

	matched := ma[0].Data.(models.Matched)
	assert.Equal(t, matched, mb[0].Data.(models.Matched))
	assert.True(t, strings.HasPrefix(matched.Room, models.PairRoomPrefix))
	assert.Equal(t, []string{"A", "B"}, matched.Participants)

	h.send("A", models.EventChatMsg, &models.ChatPayload{Room: matched.Room, Text: "hello"})
	for _, c := range []*MockClient{a, b} {
		got := c.Events(models.EventChatMsg)
		require.Len(t, got, 1)
		out := got[0].Data.(models.ChatOut)
		assert.Equal(t, "A", out.UserID)
		assert.Equal(t, "hello", out.Text)
		assert.NotZero(t, out.TS)
	}
}

func TestManager_ChatIsSanitized(t *testing.T) {
	h := createTestHub(nil)
	a, b := h.connect(t, "A"), h.connect(t, "B")
	room := pairUp(t, h, a, b)

	h.send("A", models.EventChatMsg, &models.ChatPayload{Room: room, Text: "well SHIT happens"})

	got := b.Events(models.EventChatMsg)
	require.Len(t, got, 1)
	assert.Equal(t, "well **** happens", got[0].Data.(models.ChatOut).Text)
}

func TestManager_ChatOutsideRoomIsIgnored(t *testing.T) {
	h := createTestHub(nil)
	a, b := h.connect(t, "A"), h.connect(t, "B")
	room := pairUp(t, h, a, b)
	c := h.connect(t, "C")
	drainAll(a, b)

	h.send("C", models.EventChatMsg, &models.ChatPayload{Room: room, Text: "let me in"})
	h.send("A", models.EventChatMsg, &models.ChatPayload{Room: room, Text: "   "})

	assert.Empty(t, a.Drain())
	assert.Empty(t, b.Drain())
	assert.Empty(t, c.Drain())
}

func TestManager_RateLimit(t *testing.T) {
	h := createTestHub(nil)
	a, b := h.connect(t, "A"), h.connect(t, "B")
	room := pairUp(t, h, a, b)

	for i := 0; i < config.DefaultRateMaxMessages+1; i++ {
		h.send("A", models.EventChatMsg, &models.ChatPayload{Room: room, Text: "spam"})
	}

	assert.Len(t, b.Events(models.EventChatMsg), config.DefaultRateMaxMessages)

	msgs := a.Drain()
	var limited []models.Outbound
	for _, m := range msgs {
		if m.Event == models.EventRateLimit {
			limited = append(limited, m)
		}
	}
	require.Len(t, limited, 1)
	assert.Equal(t, models.RateLimited{RetryAfterMs: config.DefaultRateWindow.Milliseconds()}, limited[0].Data)

	h.clock.Advance(config.DefaultRateWindow + time.Millisecond)
	h.send("A", models.EventChatMsg, &models.ChatPayload{Room: room, Text: "back"})
	assert.Len(t, b.Events(models.EventChatMsg), 1)
}

func TestManager_SkipNotifiesPartner(t *testing.T) {
	h := createTestHub(nil)
	a, b := h.connect(t, "A"), h.connect(t, "B")
	room := pairUp(t, h, a, b)

	h.send("B", models.EventSkip, &models.SkipPayload{})

	left := a.Events(models.EventPartnerLeft)
	require.Len(t, left, 1)
	assert.Equal(t, models.PartnerLeft{UserID: "B", Room: room}, left[0].Data)
	assert.Len(t, b.Events(models.EventQueued), 1)

	c := h.connect(t, "C")
	h.send("C", models.EventFind, &models.FindPayload{GenderPref: "any"})
	matched := c.Events(models.EventMatched)
	require.Len(t, matched, 1)
	assert.Equal(t, []string{"B", "C"}, matched[0].Data.(models.Matched).Participants)
	assert.Empty(t, a.Events(models.EventMatched))
}

func TestManager_NamedRoomFlow(t *testing.T) {
	backend := new(MockBackend)
	backend.On("RecentMessages", mock.Anything, "lobby", 10).
		Return([]models.Message{{RoomID: "lobby", SenderID: "Z", Text: "earlier", Timestamp: 1}}, nil)
	history := storage.NewHistory(backend, storage.HistoryOptions{Workers: 1})

	h := createTestHub(history)
	a, b := h.connect(t, "A"), h.connect(t, "B")

	h.send("A", models.EventJoinRoom, &models.RoomPayload{Room: "lobby"})
	msgs := a.Drain()
	require.Equal(t, []string{models.EventRoomJoined, models.EventHistory, models.EventOnlineList}, eventNames(msgs))
	assert.Equal(t, models.RoomJoined{UserID: "A", Room: "lobby"}, msgs[0].Data)
	hist := msgs[1].Data.(models.History)
	assert.Equal(t, "lobby", hist.Room)
	require.Len(t, hist.Messages, 1)
	assert.Equal(t, "earlier", hist.Messages[0].Text)

	h.send("B", models.EventJoinRoom, &models.RoomPayload{Room: "lobby"})
	assert.Len(t, a.Events(models.EventRoomJoined), 1)
	b.Drain()

	h.send("B", models.EventRoomMsg, &models.ChatPayload{Room: "lobby", Text: "anyone?"})
	assert.Len(t, a.Events(models.EventRoomMsg), 1)
	assert.Len(t, b.Events(models.EventRoomMsg), 1)

	h.send("B", models.EventLeaveRoom, &models.RoomPayload{Room: "lobby"})
	assert.Len(t, a.Events(models.EventOnlineList), 1)
	assert.Equal(t, []string{"A"}, h.Presence.Members("lobby"))
}

func TestManager_JoinPairRoomIsIgnored(t *testing.T) {
	h := createTestHub(nil)
	a, b := h.connect(t, "A"), h.connect(t, "B")
	room := pairUp(t, h, a, b)
	c := h.connect(t, "C")

	h.send("C", models.EventJoinRoom, &models.RoomPayload{Room: room})

	assert.Empty(t, c.Drain())
	assert.ElementsMatch(t, []string{"A", "B"}, h.Presence.Members(room))
}

func TestManager_MessagesArePersisted(t *testing.T) {
	backend := new(MockBackend)
	saved := make(chan models.Message, 1)
	backend.On("SaveMessage", mock.Anything, mock.AnythingOfType("models.Message")).
		Run(func(args mock.Arguments) { saved <- args.Get(1).(models.Message) }).
		Return(nil)
	history := storage.NewHistory(backend, storage.HistoryOptions{Workers: 1})
	history.Start()
	defer history.Close()

	h := createTestHub(history)
	a, b := h.connect(t, "A"), h.connect(t, "B")
	room := pairUp(t, h, a, b)

	h.send("A", models.EventChatMsg, &models.ChatPayload{Room: room, Text: "remember me"})

	select {
	case msg := <-saved:
		assert.Equal(t, room, msg.RoomID)
		assert.Equal(t, "A", msg.SenderID)
		assert.Equal(t, "remember me", msg.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not persisted")
	}
}

func TestManager_HistoryFailureDoesNotBlockRelay(t *testing.T) {
	backend := new(MockBackend)
	backend.On("SaveMessage", mock.Anything, mock.Anything).Return(errors.New("db down"))
	history := storage.NewHistory(backend, storage.HistoryOptions{Workers: 1})
	history.Start()
	defer history.Close()

	h := createTestHub(history)
	a, b := h.connect(t, "A"), h.connect(t, "B")
	room := pairUp(t, h, a, b)

	h.send("A", models.EventChatMsg, &models.ChatPayload{Room: room, Text: "still here"})

	assert.Len(t, b.Events(models.EventChatMsg), 1)
}

func TestManager_DisconnectWhileChatting(t *testing.T) {
	h := createTestHub(nil)
	a, b := h.connect(t, "A"), h.connect(t, "B")
	room := pairUp(t, h, a, b)

	h.Disconnect(h.ctx, "A")

	assert.True(t, a.IsClosed())
	msgs := b.Drain()
	require.Equal(t, []string{models.EventPartnerLeft, models.EventUserDisconnected, models.EventOnlineList}, eventNames(msgs))
	assert.Equal(t, models.PartnerLeft{UserID: "A", Room: room}, msgs[0].Data)
	assert.Equal(t, models.UserDisconnected{ConnectionID: "A"}, msgs[1].Data)
	assert.Len(t, msgs[2].Data.([]models.UserSummary), 1)

	u, ok := h.Presence.Get("B")
	require.True(t, ok)
	assert.Equal(t, models.StatusIdle, u.Status)
	assert.Empty(t, u.Room)

	h.Disconnect(h.ctx, "A")
	h.send("A", models.EventDisconnect, nil)
	assert.Empty(t, b.Drain(), "disconnect is idempotent")
}

func TestManager_DisconnectWhileWaiting(t *testing.T) {
	h := createTestHub(nil)
	h.connect(t, "A")
	b := h.connect(t, "B")
	h.send("A", models.EventFind, &models.FindPayload{GenderPref: "any"})

	h.Disconnect(h.ctx, "A")
	drainAll(b)

	h.send("B", models.EventFind, &models.FindPayload{GenderPref: "any"})
	assert.Empty(t, b.Events(models.EventMatched))
	assert.Equal(t, 1, h.Matcher.QueueLen(models.GenderAny))
}

func TestManager_HandleMessageSkipsMalformed(t *testing.T) {
	h := createTestHub(nil)
	a := h.connect(t, "A")

	h.HandleMessage(h.ctx, "A", []byte(`{not json`))
	h.HandleMessage(h.ctx, "A", []byte(`{"event":"nope"}`))
	assert.Empty(t, a.Drain())

	h.HandleMessage(h.ctx, "A", []byte(`{"event":"random:find","data":{"genderPref":"any"}}`))
	assert.Len(t, a.Events(models.EventQueued), 1)
}

func TestManager_ConcurrentFindAndDisconnect(t *testing.T) {
	h := createTestHub(nil)
	clients := make([]*MockClient, 50)
	for i := range clients {
		clients[i] = h.connect(t, fmt.Sprintf("c%02d", i))
	}

	var wg sync.WaitGroup
	for i, c := range clients {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			h.send(id, models.EventFind, &models.FindPayload{GenderPref: "any"})
			if i%3 == 0 {
				h.Disconnect(h.ctx, id)
			}
		}(i, c.connID)
	}
	wg.Wait()

	for _, u := range h.Presence.Snapshot() {
		if u.Status != models.StatusChatting {
			continue
		}
		members := h.Presence.Members(u.Room)
		assert.Len(t, members, 2, "room %s must hold exactly the pair", u.Room)
	}

	for _, c := range clients {
		answered := false
		for _, msg := range c.Drain() {
			if msg.Event == models.EventQueued || msg.Event == models.EventMatched {
				answered = true
				break
			}
		}
		assert.True(t, answered, "%s got neither random:queued nor random:matched", c.connID)
	}
}

func TestManager_AuthAcceptsGenderPref(t *testing.T) {
	h := createTestHub(nil)
	a := newMockClient("A")
	h.Register(a)

	h.send("A", models.EventAuth, &models.AuthPayload{GenderPref: "other"})

	u, ok := h.Presence.Get("A")
	require.True(t, ok)
	assert.Equal(t, models.GenderOther, u.Gender)
	assert.Equal(t, "A", u.UserID)
	assert.Equal(t, "Stranger", u.DisplayName)
}

func TestManager_MatchUndoneByDisconnectIsStillAnnounced(t *testing.T) {
	h := createTestHub(nil)
	a := h.connect(t, "A")
	b := h.connect(t, "B")
	h.send("A", models.EventFind, &models.FindPayload{GenderPref: "any"})
	drainAll(a, b)

	// B's find matches A, and A drops before B's handler finishes.
	res := h.Matcher.RequestMatch("B", "any")
	require.True(t, res.Matched)
	h.Disconnect(h.ctx, "A")

	msgs := b.Drain()
	require.Equal(t, []string{
		models.EventMatched,
		models.EventPartnerLeft,
		models.EventUserDisconnected,
		models.EventOnlineList,
	}, eventNames(msgs))
	assert.Equal(t, models.Matched{Room: res.Room, Participants: []string{"A", "B"}}, msgs[0].Data)
	assert.Equal(t, models.PartnerLeft{UserID: "A", Room: res.Room}, msgs[1].Data)

	u, _ := h.Presence.Get("B")
	assert.Equal(t, models.StatusIdle, u.Status)
	assert.Empty(t, u.Room)
}

func TestManager_MatchUndoneByPartnerFindIsStillAnnounced(t *testing.T) {
	h := createTestHub(nil)
	a := h.connect(t, "A")
	b := h.connect(t, "B")
	h.send("A", models.EventFind, &models.FindPayload{GenderPref: "any"})
	drainAll(a, b)

	res := h.Matcher.RequestMatch("B", "any")
	require.True(t, res.Matched)
	h.send("A", models.EventFind, &models.FindPayload{GenderPref: "any"})

	names := eventNames(b.Drain())
	require.GreaterOrEqual(t, len(names), 2)
	assert.Equal(t, []string{models.EventMatched, models.EventPartnerLeft}, names[:2])

	got := eventNames(a.Drain())
	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, []string{models.EventMatched, models.EventQueued}, got[:2])
}

func TestManager_QueuedArrivesBeforeMatched(t *testing.T) {
	h := createTestHub(nil)
	a := h.connect(t, "A")
	h.connect(t, "B")

	h.Matcher.RequestMatch("A", "any")
	h.Matcher.RequestMatch("B", "any")

	assert.Equal(t, []string{models.EventQueued, models.EventMatched}, eventNames(a.Drain()))
}

func TestManager_AuthAcceptsIdentity(t *testing.T) {
	h := createTestHub(nil)
	a := newMockClient("A")
	h.Register(a)

	h.send("A", models.EventAuth, &models.AuthPayload{Identity: "alice"})
	msgs := a.Drain()
	require.NotEmpty(t, msgs)
	assert.Equal(t, models.AuthOK{ConnectionID: "A", UserID: "alice"}, msgs[0].Data)

	h.send("A", models.EventAuth, &models.AuthPayload{ID: "bob", Identity: "alice"})
	u, _ := h.Presence.Get("A")
	assert.Equal(t, "bob", u.UserID, "id wins over identity")
}
