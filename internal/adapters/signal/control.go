package signal

import "github.com/dkeye/Huddle/internal/domain"

func (ctl *SignalWSController) handlePing(c *WsSignalConn) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(c, resp)
}

func (ctl *SignalWSController) handleWhoAmI(c *WsSignalConn) {
	resp := struct {
		Type   string        `json:"type"`
		ConnID domain.ConnID `json:"connId"`
		RoomID domain.RoomID `json:"roomId,omitempty"`
		UserID domain.UserID `json:"userId,omitempty"`
	}{
		Type:   "whoami",
		ConnID: c.id,
	}
	if b, ok := ctl.Orch.Binding(c.id); ok {
		resp.RoomID = b.RoomID
		resp.UserID = b.UserID
	}
	ctl.sendJSON(c, resp)
}
