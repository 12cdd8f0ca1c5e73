package signal

import (
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleMessage(c *WsSignalConn, data []byte) {
	var p newMessagePayload
	if err := decode(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("bad message payload")
		ctl.sendError(c, ErrCodeBadPayload)
		return
	}
	if !ctl.bound(c, p.RoomID, p.Message.UserID) {
		return
	}
	if !ctl.limiter.Allow(domain.UserID(p.Message.UserID)) {
		log.Debug().Str("module", "signal").Str("user", p.Message.UserID).Msg("message rate limited")
		ctl.sendError(c, ErrCodeRateLimited)
		return
	}
	ctl.Orch.Message(c.id, p.Message.UserName, p.Message.Content)
}
