package models

import (
	"strings"

	"github.com/google/uuid"
)

// PairRoomPrefix marks rooms created by the matcher for a random pairing.
const PairRoomPrefix = "pair_"

// NewPairRoomID returns a fresh, unique pair room identifier.
func NewPairRoomID() string {
	return PairRoomPrefix + uuid.New().String()
}

// IsPairRoom reports whether room was generated for a random pairing.
func IsPairRoom(room string) bool {
	return strings.HasPrefix(room, PairRoomPrefix)
}
