package signal

import (
	"errors"

	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoin(c *WsSignalConn, data []byte) {
	var p joinPayload
	if err := decode(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("bad join payload")
		ctl.sendError(c, ErrCodeBadPayload)
		return
	}

	log.Info().Str("module", "signal").Str("conn", string(c.id)).Str("room", p.RoomID).Str("user", p.UserID).Msg("join")
	err := ctl.Orch.Join(c.id, domain.RoomID(p.RoomID), domain.UserID(p.UserID), p.InitialState)
	switch {
	case err == nil:
	case errors.Is(err, orch.ErrAlreadyJoined):
		ctl.sendError(c, ErrCodeAlreadyJoined)
	default:
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("join rejected")
	}
}

// bound checks that the identifiers a client repeats in its payload match
// what its connection joined as.
func (ctl *SignalWSController) bound(c *WsSignalConn, room, user string) bool {
	b, ok := ctl.Orch.Binding(c.id)
	if !ok {
		ctl.sendError(c, ErrCodeNotJoined)
		return false
	}
	if string(b.RoomID) != room || string(b.UserID) != user {
		log.Warn().Str("module", "signal").Str("conn", string(c.id)).Str("room", room).Str("user", user).Msg("payload identity does not match connection")
		ctl.sendError(c, ErrCodeIdentityMismatch)
		return false
	}
	return true
}
