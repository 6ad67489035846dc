package chathub_test

import (
	"sync"

	"strangerly/backend/internal/models"
)

type MockClient struct {
	connID string
	send   chan models.Outbound

	mu     sync.Mutex
	closed bool
}

func newMockClient(connID string) *MockClient {
	return &MockClient{
		connID: connID,
		send:   make(chan models.Outbound, 1024),
	}
}

func (c *MockClient) GetConnID() string {
	return c.connID
}

func (c *MockClient) GetSendChannel() chan<- models.Outbound {
	return c.send
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	close(c.send)
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Drain returns everything delivered so far without blocking.
func (c *MockClient) Drain() []models.Outbound {
	var out []models.Outbound
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

// Events drains the client and keeps only the named events.
func (c *MockClient) Events(name string) []models.Outbound {
	var out []models.Outbound
	for _, msg := range c.Drain() {
		if msg.Event == name {
			out = append(out, msg)
		}
	}
	return out
}

func eventNames(msgs []models.Outbound) []string {
	names := make([]string, 0, len(msgs))
	for _, m := range msgs {
		names = append(names, m.Event)
	}
	return names
}
