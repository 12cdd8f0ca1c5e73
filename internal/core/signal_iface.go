package core

import "errors"

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// SignalConnection abstracts for a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
// TrySend must never block: it either queues the event or fails.
type SignalConnection interface {
	TrySend(Event) error
	Close()
}
