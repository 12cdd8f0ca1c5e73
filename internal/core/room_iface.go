package core

import (
	"time"

	"github.com/dkeye/Huddle/internal/domain"
)

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	UserID          domain.UserID     `json:"userId"`
	Media           domain.MediaState `json:"media"`
	LastConnectedAt time.Time         `json:"lastConnectedAt"`
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
}
