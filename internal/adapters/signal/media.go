package signal

import (
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleToggle(
	c *WsSignalConn,
	data []byte,
	apply func(domain.ConnID, bool) bool,
) {
	var p togglePayload
	if err := decode(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("bad toggle payload")
		ctl.sendError(c, ErrCodeBadPayload)
		return
	}
	if !ctl.bound(c, p.RoomID, p.UserID) {
		return
	}
	apply(c.id, *p.Enabled)
}
