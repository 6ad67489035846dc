package chathub

import "strangerly/backend/internal/models"

// Client is one live connection as seen by the hub. It abstracts the
// transport so the relay can treat websocket and test clients alike.
type Client interface {
	// GetConnID returns the transport-assigned connection identity.
	GetConnID() string

	// GetSendChannel returns the channel the relay writes outbound events to.
	// The relay never sends after it has called Close.
	GetSendChannel() chan<- models.Outbound

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts the outbound side down. Called exactly once, by the relay.
	Close()
}
