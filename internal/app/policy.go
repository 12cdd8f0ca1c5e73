package app

import (
	"github.com/dkeye/Huddle/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
)

// Policy decides what happens to a peer whose outbound queue is full.
type Policy interface {
	OnBackPressure(room domain.RoomID, conn domain.ConnID) BackpressureAction
}

// SimplePolicy kicks slow consumers. They rejoin and get the history replayed.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.RoomID, domain.ConnID) BackpressureAction {
	return KickMember
}

// TolerantPolicy drops the event and keeps the peer.
type TolerantPolicy struct{}

func (TolerantPolicy) OnBackPressure(domain.RoomID, domain.ConnID) BackpressureAction {
	return NoAction
}
