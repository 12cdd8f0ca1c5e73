package app

import (
	"sync"

	"github.com/dkeye/Huddle/internal/domain"
)

// History is the append-only per-room chat log. It lives as long as the
// room has members; RoomRegistry drops it when the room is deleted.
type History struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID][]domain.Message
}

func NewHistory() *History {
	return &History{rooms: make(map[domain.RoomID][]domain.Message)}
}

func (h *History) Append(room domain.RoomID, msg domain.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rooms[room] = append(h.rooms[room], msg)
}

// History returns a copy of the room log in append order.
func (h *History) History(room domain.RoomID) []domain.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	msgs := h.rooms[room]
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out
}

func (h *History) Len(room domain.RoomID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *History) DropRoom(room domain.RoomID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, room)
}
