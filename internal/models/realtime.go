package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound event names (client -> server).
const (
	EventAuth       = "auth"
	EventFind       = "random:find"
	EventSkip       = "random:skip"
	EventJoinRoom   = "join:room"
	EventLeaveRoom  = "leave:room"
	EventChatMsg    = "chat:msg"
	EventRoomMsg    = "room:msg"
	EventDisconnect = "disconnect" // synthesized by the transport, never sent by clients
)

// Outbound event names (server -> client). chat:msg and room:msg are reused.
const (
	EventAuthOK           = "auth:ok"
	EventOnlineList       = "online:list"
	EventQueued           = "random:queued"
	EventMatched          = "random:matched"
	EventRoomJoined       = "room:joined"
	EventHistory          = "chat:history"
	EventRateLimit        = "rate:limit"
	EventUserDisconnected = "user:disconnected"
	EventPartnerLeft      = "partner:left"
)

var ErrUnknownEvent = errors.New("unknown event")

// Envelope is the wire frame carried by the websocket in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound is an event queued for delivery to one client.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Client -> Server payloads

type AuthPayload struct {
	ID          string `json:"id"`
	Identity    string `json:"identity"` // same as id; id wins when both are set
	Gender      string `json:"gender"`
	GenderPref  string `json:"genderPref"` // older clients send the gender under this name
	DisplayName string `json:"displayName"`
}

type FindPayload struct {
	GenderPref string `json:"genderPref"`
}

type SkipPayload struct{}

type RoomPayload struct {
	Room string `json:"room"`
}

type ChatPayload struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

// Server -> Client payloads

type AuthOK struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId"`
}

type Queued struct{}

type Matched struct {
	Room         string   `json:"room"`
	Participants []string `json:"participants"`
}

type RoomJoined struct {
	UserID string `json:"userId"`
	Room   string `json:"room"`
}

type ChatOut struct {
	UserID string `json:"userId"`
	Text   string `json:"text"`
	TS     int64  `json:"ts"`
}

type History struct {
	Room     string    `json:"room"`
	Messages []Message `json:"messages"`
}

type RateLimited struct {
	RetryAfterMs int64 `json:"retryAfterMs"`
}

type UserDisconnected struct {
	ConnectionID string `json:"connectionId"`
}

type PartnerLeft struct {
	UserID string `json:"userId"`
	Room   string `json:"room"`
}

// DecodeInbound parses an envelope into its typed payload. Missing data is
// treated as an empty object so optional-only events decode cleanly.
func DecodeInbound(raw []byte) (string, any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, fmt.Errorf("invalid envelope: %w", err)
	}

	var payload any
	switch env.Event {
	case EventAuth:
		payload = &AuthPayload{}
	case EventFind:
		payload = &FindPayload{}
	case EventSkip:
		payload = &SkipPayload{}
	case EventJoinRoom, EventLeaveRoom:
		payload = &RoomPayload{}
	case EventChatMsg, EventRoomMsg:
		payload = &ChatPayload{}
	default:
		return env.Event, nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}

	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, payload); err != nil {
			return env.Event, nil, fmt.Errorf("invalid %s payload: %w", env.Event, err)
		}
	}
	return env.Event, payload, nil
}
