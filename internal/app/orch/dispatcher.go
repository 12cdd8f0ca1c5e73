// Package orch applies inbound connection events to room state and fans
// the resulting events out to room peers.
package orch

import (
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownConnection = errors.New("unknown connection")
	ErrAlreadyJoined     = errors.New("connection already joined a room")
)

// Dispatcher is the per-connection state machine
// Unjoined -> Joined -> Closed.
//
// A connection is Unjoined after Connect, Joined while ConnIndex has a
// binding for it, and Closed once it is no longer known to the
// dispatcher. Every event runs under one mutex, so the registry, the
// index and the history change together and peers observe events in
// mutation order.
type Dispatcher struct {
	Rooms   *app.RoomRegistry
	Index   *app.ConnIndex
	History *app.History
	Policy  app.Policy
	Now     app.Clock

	mu    sync.Mutex
	conns map[domain.ConnID]core.SignalConnection
}

func NewDispatcher(policy app.Policy, now app.Clock) *Dispatcher {
	history := app.NewHistory()
	return &Dispatcher{
		Rooms:   app.NewRoomRegistry(history, now),
		Index:   app.NewConnIndex(),
		History: history,
		Policy:  policy,
		Now:     now,
		conns:   make(map[domain.ConnID]core.SignalConnection),
	}
}

// Connect registers an accepted transport connection in state Unjoined.
func (d *Dispatcher) Connect(conn domain.ConnID, sc core.SignalConnection) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if old, ok := d.conns[conn]; ok && old != sc {
		old.Close()
	}
	d.conns[conn] = sc
	log.Info().Str("module", "app.orch").Str("conn", string(conn)).Msg("connection accepted")
}

// Binding reports the room and user a connection currently represents.
func (d *Dispatcher) Binding(conn domain.ConnID) (app.Binding, bool) {
	return d.Index.Resolve(conn)
}

// Connections returns the number of open connections, joined or not.
func (d *Dispatcher) Connections() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

// Shutdown closes every transport. Their read loops will report
// Disconnect, which is then a no-op for room state.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, sc := range d.conns {
		sc.Close()
		delete(d.conns, id)
	}
	log.Info().Str("module", "app.orch").Msg("dispatcher shut down")
}

func (d *Dispatcher) timestamp() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now().UTC()
}

// send delivers ev to one connection and applies the backpressure
// policy on failure. Caller holds d.mu.
func (d *Dispatcher) send(room domain.RoomID, to domain.ConnID, ev core.Event) bool {
	sc, ok := d.conns[to]
	if !ok {
		return false
	}
	if err := sc.TrySend(ev); err != nil {
		log.Warn().Err(err).Str("module", "app.orch").Str("room", string(room)).Str("conn", string(to)).Str("event", ev.EventType()).Msg("send failed")
		d.onBackPressure(room, to, sc)
		return false
	}
	return true
}

// broadcast delivers ev to every connection in room except from.
// Caller holds d.mu.
func (d *Dispatcher) broadcast(room domain.RoomID, from domain.ConnID, ev core.Event) int {
	sent := 0
	for _, to := range d.Rooms.ConnsOf(room) {
		if to == from {
			continue
		}
		if d.send(room, to, ev) {
			sent++
		}
	}
	log.Debug().Str("module", "app.orch").Str("room", string(room)).Str("from", string(from)).Str("event", ev.EventType()).Int("sent_to", sent).Msg("broadcast result")
	return sent
}

// onBackPressure closes a slow transport when the policy says so. The
// adapter's read loop then reports a regular Disconnect.
func (d *Dispatcher) onBackPressure(room domain.RoomID, conn domain.ConnID, sc core.SignalConnection) {
	if d.Policy == nil {
		return
	}
	switch d.Policy.OnBackPressure(room, conn) {
	case app.KickMember:
		log.Warn().Str("module", "app.orch").Str("room", string(room)).Str("conn", string(conn)).Msg("kicking slow member")
		sc.Close()
	case app.NoAction:
	}
}
