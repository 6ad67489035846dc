package models

import (
	"time"

	"gorm.io/gorm"
)

// Message is one relayed chat line. It is immutable once emitted.
type Message struct {
	RoomID    string `json:"room"`
	SenderID  string `json:"userId"`
	Text      string `json:"text"`
	Timestamp int64  `json:"ts"` // unix milliseconds
}

// ChatHistory represents a saved chat message in the SQL database.
// The embedded gorm.Model provides the row ID and bookkeeping timestamps.
type ChatHistory struct {
	gorm.Model

	// RoomID is the identifier of the room the message was relayed to.
	RoomID string `gorm:"type:text;not null;index:idx_room_sent"`
	// SenderID is the connection identity of the author.
	SenderID string `gorm:"type:text;not null"`
	// Content is the sanitized text as it was delivered.
	Content string `gorm:"type:text;not null"`
	// SentAt keeps the relay timestamp in unix milliseconds so ordering
	// matches what clients saw.
	SentAt int64 `gorm:"not null;index:idx_room_sent"`
}

// NewChatHistory converts a relayed message into its persisted row.
func NewChatHistory(msg Message) ChatHistory {
	return ChatHistory{
		RoomID:   msg.RoomID,
		SenderID: msg.SenderID,
		Content:  msg.Text,
		SentAt:   msg.Timestamp,
	}
}

func (h ChatHistory) ToMessage() Message {
	return Message{
		RoomID:    h.RoomID,
		SenderID:  h.SenderID,
		Text:      h.Content,
		Timestamp: h.SentAt,
	}
}

// NowMillis is the timestamp format used on the wire.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
