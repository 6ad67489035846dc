package models

// Status is the matchmaking state of a connected user.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusWaiting  Status = "waiting"
	StatusChatting Status = "chatting"
)

// Gender buckets. A user's declared gender and its search preference share
// the same value set.
const (
	GenderAny    = "any"
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Genders lists every waiting bucket in a fixed order.
var Genders = []string{GenderAny, GenderMale, GenderFemale, GenderOther}

// NormalizeGender maps unknown or empty values to GenderAny.
func NormalizeGender(g string) string {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return g
	default:
		return GenderAny
	}
}

// User is the presence record of one live connection.
// It lives only in memory and is owned by the presence registry; everyone else
// holds a copy and must re-read it instead of caching.
type User struct {
	// ConnID is the transport-assigned connection identity.
	ConnID string
	// UserID is the self-declared identity, ConnID when none was given.
	UserID      string
	Gender      string
	Pref        string // last requested waiting bucket
	DisplayName string
	Room        string // "" when not in a room
	Status      Status
}

// UserSummary is the public view of a user sent in online:list.
type UserSummary struct {
	ID          string `json:"id"`
	ConnID      string `json:"connectionId"`
	Gender      string `json:"gender"`
	Room        string `json:"room,omitempty"`
	Status      Status `json:"status"`
	DisplayName string `json:"displayName"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		ID:          u.UserID,
		ConnID:      u.ConnID,
		Gender:      u.Gender,
		Room:        u.Room,
		Status:      u.Status,
		DisplayName: u.DisplayName,
	}
}
