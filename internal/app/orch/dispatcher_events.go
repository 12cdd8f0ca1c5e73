package orch

import (
	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

// Message appends a chat line from conn's user to its room history and
// relays it to the other members. The timestamp is assigned here so each
// room has one server-observed order.
func (d *Dispatcher) Message(conn domain.ConnID, userName, content string) (domain.Message, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.Index.Resolve(conn)
	if !ok {
		return domain.Message{}, false
	}
	msg := domain.Message{
		UserID:    b.UserID,
		UserName:  userName,
		Content:   content,
		Timestamp: d.timestamp(),
	}
	d.History.Append(b.RoomID, msg)
	d.broadcast(b.RoomID, conn, core.NewReceiveMessage(msg))
	return msg, true
}

func (d *Dispatcher) ToggleVideo(conn domain.ConnID, enabled bool) bool {
	return d.toggle(conn, app.ToggleVideo, enabled)
}

func (d *Dispatcher) ToggleAudio(conn domain.ConnID, enabled bool) bool {
	return d.toggle(conn, app.ToggleAudio, enabled)
}

func (d *Dispatcher) toggle(conn domain.ConnID, field app.Toggle, enabled bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.Index.Resolve(conn)
	if !ok {
		return false
	}
	if !d.Rooms.SetToggle(b.RoomID, b.UserID, field, enabled) {
		// stale binding, absorbed
		log.Debug().Str("module", "app.orch").Str("conn", string(conn)).Str("toggle", field.String()).Msg("toggle dropped")
		return false
	}

	var ev core.Event
	switch field {
	case app.ToggleVideo:
		ev = core.NewUserToggleVideo(b.UserID, enabled)
	case app.ToggleAudio:
		ev = core.NewUserToggleAudio(b.UserID, enabled)
	default:
		return false
	}
	d.broadcast(b.RoomID, conn, ev)
	return true
}
