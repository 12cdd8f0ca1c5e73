package app

import (
	"sync"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

// Binding is what a joined connection currently represents.
type Binding struct {
	RoomID domain.RoomID
	UserID domain.UserID
}

// ConnIndex is the reverse index from a live connection to the
// (room, user) it joined. Callers keep it consistent with RoomRegistry
// by updating both in the same critical section.
type ConnIndex struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]Binding
}

func NewConnIndex() *ConnIndex {
	return &ConnIndex{conns: make(map[domain.ConnID]Binding)}
}

// Bind records the mapping, overwriting any prior binding of conn.
func (x *ConnIndex) Bind(conn domain.ConnID, room domain.RoomID, user domain.UserID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.conns[conn] = Binding{RoomID: room, UserID: user}
	log.Debug().Str("module", "app.index").Str("conn", string(conn)).Str("room", string(room)).Str("user", string(user)).Msg("bound connection")
}

func (x *ConnIndex) Resolve(conn domain.ConnID) (Binding, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	b, ok := x.conns[conn]
	return b, ok
}

func (x *ConnIndex) Unbind(conn domain.ConnID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.conns, conn)
	log.Debug().Str("module", "app.index").Str("conn", string(conn)).Msg("unbound connection")
}

func (x *ConnIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.conns)
}
