package ratelimit_test

import (
	"sync"
	"testing"
	"time"

	"strangerly/backend/internal/ratelimit"

	"github.com/stretchr/testify/assert"
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

func newLimiter() (*ratelimit.Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	return ratelimit.New(5, 10*time.Second).WithClock(clock.Now), clock
}

func TestAllow_SixthMessageDenied(t *testing.T) {
	l, clock := newLimiter()

	for i := 0; i < 5; i++ {
		ok, _ := l.Allow("conn-1")
		assert.True(t, ok, "message %d should pass", i+1)
		clock.Advance(time.Second)
	}

	ok, retry := l.Allow("conn-1")
	assert.False(t, ok)
	assert.Equal(t, 5*time.Second, retry, "oldest entry is 5s old in a 10s window")

	clock.Advance(retry)
	ok, _ = l.Allow("conn-1")
	assert.True(t, ok, "after retryAfter the next message must pass")
}

func TestAllow_BurstRetryAfterIsPositive(t *testing.T) {
	l, _ := newLimiter()

	for i := 0; i < 5; i++ {
		ok, _ := l.Allow("conn-1")
		assert.True(t, ok)
	}

	ok, retry := l.Allow("conn-1")
	assert.False(t, ok)
	assert.Equal(t, 10*time.Second, retry)
}

func TestAllow_DeniedCallsDoNotExtendWindow(t *testing.T) {
	l, clock := newLimiter()
	for i := 0; i < 5; i++ {
		l.Allow("conn-1")
	}

	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		ok, _ := l.Allow("conn-1")
		assert.False(t, ok)
	}

	clock.Advance(7 * time.Second)
	ok, _ := l.Allow("conn-1")
	assert.True(t, ok)
}

func TestAllow_ConnectionsAreIndependent(t *testing.T) {
	l, _ := newLimiter()
	for i := 0; i < 5; i++ {
		l.Allow("conn-1")
	}

	ok, _ := l.Allow("conn-2")
	assert.True(t, ok)
}

func TestForget(t *testing.T) {
	l, _ := newLimiter()
	for i := 0; i < 5; i++ {
		l.Allow("conn-1")
	}
	assert.Equal(t, 1, l.Len())

	l.Forget("conn-1")
	l.Forget("conn-1")

	assert.Equal(t, 0, l.Len())
	ok, _ := l.Allow("conn-1")
	assert.True(t, ok)
}

func TestAllow_ConcurrentConnections(t *testing.T) {
	l := ratelimit.New(5, time.Minute)

	var wg sync.WaitGroup
	allowed := make([]int, 8)
	for c := 0; c < 8; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			id := string(rune('a' + c))
			for i := 0; i < 20; i++ {
				if ok, _ := l.Allow(id); ok {
					allowed[c]++
				}
			}
		}(c)
	}
	wg.Wait()

	for c, n := range allowed {
		assert.Equal(t, 5, n, "connection %d", c)
	}
}
