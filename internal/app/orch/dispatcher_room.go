package orch

import (
	"fmt"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

// Join moves an Unjoined connection into room as user. A previous
// connection of the same user in the same room is told it was
// superseded and closed. The joiner alone receives the room history;
// everyone else receives user-connected.
func (d *Dispatcher) Join(conn domain.ConnID, room domain.RoomID, user domain.UserID, initial domain.MediaState) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.conns[conn]; !ok {
		return fmt.Errorf("join %s: %w", conn, ErrUnknownConnection)
	}
	if b, ok := d.Index.Resolve(conn); ok {
		return fmt.Errorf("join %s (bound to %s/%s): %w", conn, b.RoomID, b.UserID, ErrAlreadyJoined)
	}

	if evicted, ok := d.Rooms.Join(room, user, conn, initial); ok {
		d.evict(room, evicted)
	}
	d.Index.Bind(conn, room, user)
	log.Info().Str("module", "app.orch").Str("conn", string(conn)).Str("room", string(room)).Str("user", string(user)).Msg("joined")

	d.send(room, conn, core.NewMessageHistory(d.History.History(room)))
	d.broadcast(room, conn, core.NewUserConnected(user, initial))
	return nil
}

// evict closes a superseded connection. Its own Disconnect arrives later
// and resolves to nothing. Caller holds d.mu.
func (d *Dispatcher) evict(room domain.RoomID, conn domain.ConnID) {
	d.Index.Unbind(conn)
	sc, ok := d.conns[conn]
	if !ok {
		return
	}
	delete(d.conns, conn)
	if err := sc.TrySend(core.NewSuperseded(room)); err != nil {
		log.Debug().Err(err).Str("module", "app.orch").Str("conn", string(conn)).Msg("superseded notice not delivered")
	}
	sc.Close()
	log.Info().Str("module", "app.orch").Str("conn", string(conn)).Str("room", string(room)).Msg("evicted superseded connection")
}

// Disconnect closes conn for good. If it still owned a membership slot
// the slot is removed and the room is told.
func (d *Dispatcher) Disconnect(conn domain.ConnID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.conns, conn)
	b, ok := d.Index.Resolve(conn)
	if !ok {
		log.Debug().Str("module", "app.orch").Str("conn", string(conn)).Msg("disconnect of unbound connection")
		return
	}
	d.Index.Unbind(conn)
	if !d.Rooms.Leave(b.RoomID, b.UserID, conn) {
		return
	}
	log.Info().Str("module", "app.orch").Str("conn", string(conn)).Str("room", string(b.RoomID)).Str("user", string(b.UserID)).Msg("left")
	d.broadcast(b.RoomID, conn, core.NewUserDisconnected(b.UserID))
}
