package domain

import "time"

// ConnID identifies one live transport connection. A reconnecting client
// gets a new ConnID.
type ConnID string

// MediaState is the client-reported audio/video flags of a member.
type MediaState struct {
	IsVideoEnabled bool `json:"isVideoEnabled"`
	IsAudioEnabled bool `json:"isAudioEnabled"`
}

// Member represents user's presence in one room.
// No transport or lifecycle logic here; ConnID is the connection that
// currently owns the slot.
type Member struct {
	UserID          UserID
	ConnID          ConnID
	Media           MediaState
	LastConnectedAt time.Time
}

// NewMember avoids raw literals in the registry and keeps construction obvious.
func NewMember(user UserID, connID ConnID, media MediaState, at time.Time) *Member {
	return &Member{
		UserID:          user,
		ConnID:          connID,
		Media:           media,
		LastConnectedAt: at,
	}
}
