// Package signal adapts the browser WebSocket event protocol to the
// dispatcher: it parses and validates inbound frames and serializes
// outbound events.
package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ClientTokenKey is the gin context key holding the per-browser token.
const ClientTokenKey = "client_token"

type SignalWSController struct {
	Orch    *orch.Dispatcher
	cfg     *config.Config
	limiter *UserRateLimiter
}

func NewSignalWSController(d *orch.Dispatcher, cfg *config.Config) *SignalWSController {
	return &SignalWSController{
		Orch:    d,
		cfg:     cfg,
		limiter: NewUserRateLimiter(cfg.MessageRate, cfg.MessageInterval),
	}
}

// WsSignalConn is the transport endpoint of one browser connection.
// Close stops accepting frames; the write pump drains what is queued,
// sends a close frame and releases the socket.
type WsSignalConn struct {
	id   domain.ConnID
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(id domain.ConnID, ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{
		id:   id,
		conn: ws,
		send: make(chan []byte, buffer),
	}
}

func (c *WsSignalConn) TrySend(ev core.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.EventType(), err)
	}
	return c.trySendRaw(b)
}

func (c *WsSignalConn) trySendRaw(b []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- b:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection until either
// side closes it or ctx is done.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	id := domain.ConnID(uuid.NewString())
	token := c.GetString(ClientTokenKey)
	log.Info().Str("module", "signal").Str("conn", string(id)).Str("client_token", token).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := newWsSignalConn(id, ws, ctl.cfg.SendBuffer)
	ctl.Orch.Connect(id, conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, conn)
}
