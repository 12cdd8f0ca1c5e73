package app

import (
	"cmp"
	"slices"
	"sync"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Toggle names a MediaState flag that clients may flip.
type Toggle int

const (
	ToggleVideo Toggle = iota
	ToggleAudio
)

func (t Toggle) String() string {
	switch t {
	case ToggleVideo:
		return "video"
	case ToggleAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// RoomDropper is notified when a room is deleted so per-room data tied
// to its lifetime can be released.
type RoomDropper interface {
	DropRoom(room domain.RoomID)
}

type roomState struct {
	members map[domain.UserID]*domain.Member
}

// RoomRegistry owns the set of rooms and, per room, one membership slot
// per user. A slot belongs to exactly one connection at a time.
type RoomRegistry struct {
	mu      sync.RWMutex
	rooms   map[domain.RoomID]*roomState
	dropper RoomDropper
	now     Clock
}

func NewRoomRegistry(dropper RoomDropper, now Clock) *RoomRegistry {
	return &RoomRegistry{
		rooms:   make(map[domain.RoomID]*roomState),
		dropper: dropper,
		now:     now.orDefault(),
	}
}

// Join puts conn in charge of user's slot in room, creating the room on
// demand. If the slot was held by another connection, that connection is
// returned as evicted.
func (r *RoomRegistry) Join(
	room domain.RoomID,
	user domain.UserID,
	conn domain.ConnID,
	initial domain.MediaState,
) (domain.ConnID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ok := r.rooms[room]
	if !ok {
		rs = &roomState{members: make(map[domain.UserID]*domain.Member)}
		r.rooms[room] = rs
		log.Info().Str("module", "app.registry").Str("room", string(room)).Msg("room created")
	}

	var evicted domain.ConnID
	if old, ok := rs.members[user]; ok && old.ConnID != conn {
		evicted = old.ConnID
	}
	rs.members[user] = domain.NewMember(user, conn, initial, r.now())

	logger := log.Info().Str("module", "app.registry").Str("room", string(room)).Str("user", string(user)).Str("conn", string(conn))
	if evicted != "" {
		logger.Str("evicted", string(evicted)).Msg("member superseded")
		return evicted, true
	}
	logger.Msg("member added")
	return "", false
}

// Leave removes user's slot only while conn still owns it. A stale
// disconnect from a superseded connection is a no-op.
func (r *RoomRegistry) Leave(room domain.RoomID, user domain.UserID, conn domain.ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ok := r.rooms[room]
	if !ok {
		return false
	}
	m, ok := rs.members[user]
	if !ok || m.ConnID != conn {
		log.Debug().Str("module", "app.registry").Str("room", string(room)).Str("user", string(user)).Str("conn", string(conn)).Msg("stale leave ignored")
		return false
	}
	delete(rs.members, user)
	log.Info().Str("module", "app.registry").Str("room", string(room)).Str("user", string(user)).Str("conn", string(conn)).Msg("member removed")

	if len(rs.members) == 0 {
		delete(r.rooms, room)
		if r.dropper != nil {
			r.dropper.DropRoom(room)
		}
		log.Info().Str("module", "app.registry").Str("room", string(room)).Msg("room deleted")
	}
	return true
}

// SetToggle flips a media flag of a current member. It reports false
// when the user is not in the room.
func (r *RoomRegistry) SetToggle(room domain.RoomID, user domain.UserID, field Toggle, value bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ok := r.rooms[room]
	if !ok {
		return false
	}
	m, ok := rs.members[user]
	if !ok {
		return false
	}
	switch field {
	case ToggleVideo:
		m.Media.IsVideoEnabled = value
	case ToggleAudio:
		m.Media.IsAudioEnabled = value
	default:
		return false
	}
	return true
}

// Member returns a copy of user's slot.
func (r *RoomRegistry) Member(room domain.RoomID, user domain.UserID) (domain.Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rs, ok := r.rooms[room]
	if !ok {
		return domain.Member{}, false
	}
	m, ok := rs.members[user]
	if !ok {
		return domain.Member{}, false
	}
	return *m, true
}

// Members returns the users present in room, sorted.
func (r *RoomRegistry) Members(room domain.RoomID) []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rs, ok := r.rooms[room]
	if !ok {
		return nil
	}
	users := lo.Keys(rs.members)
	slices.Sort(users)
	return users
}

// ConnsOf returns the owning connection of every slot in room.
func (r *RoomRegistry) ConnsOf(room domain.RoomID) []domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rs, ok := r.rooms[room]
	if !ok {
		return nil
	}
	return lo.MapToSlice(rs.members, func(_ domain.UserID, m *domain.Member) domain.ConnID {
		return m.ConnID
	})
}

func (r *RoomRegistry) Exists(room domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[room]
	return ok
}

func (r *RoomRegistry) MembersSnapshot(room domain.RoomID) []core.MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rs, ok := r.rooms[room]
	if !ok {
		return nil
	}
	out := make([]core.MemberDTO, 0, len(rs.members))
	for _, m := range rs.members {
		out = append(out, core.MemberDTO{UserID: m.UserID, Media: m.Media, LastConnectedAt: m.LastConnectedAt})
	}
	slices.SortFunc(out, func(a, b core.MemberDTO) int {
		return cmp.Compare(a.UserID, b.UserID)
	})
	return out
}

func (r *RoomRegistry) List() []core.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(r.rooms))
	for id, rs := range r.rooms {
		out = append(out, core.RoomInfo{ID: id, MemberCount: len(rs.members)})
	}
	slices.SortFunc(out, func(a, b core.RoomInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
