package orch

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	events []core.Event
	closed int
	full   bool
}

func (c *fakeConn) TrySend(ev core.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed > 0 {
		return core.ErrConnClosed
	}
	if c.full {
		return core.ErrBackpressure
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
}

func (c *fakeConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.EventType())
	}
	return out
}

func (c *fakeConn) last() core.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return nil
	}
	return c.events[len(c.events)-1]
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

func (c *fakeConn) history(t *testing.T) []domain.Message {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ev := range c.events {
		if h, ok := ev.(core.MessageHistory); ok {
			return h.Messages
		}
	}
	t.Fatalf("no message-history received")
	return nil
}

func stepClock() app.Clock {
	var mu sync.Mutex
	t := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(app.SimplePolicy{}, stepClock())
}

func connect(d *Dispatcher, id domain.ConnID) *fakeConn {
	c := &fakeConn{}
	d.Connect(id, c)
	return c
}

func TestDispatcher_Reconnect_Scenario(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	a := connect(d, "A")
	b := connect(d, "B")

	// Given u1 joined r1 on A
	req.NoError(d.Join("A", "r1", "u1", domain.MediaState{}))
	req.Empty(a.history(t))

	// When u2 joins r1 on B
	req.NoError(d.Join("B", "r1", "u2", domain.MediaState{IsAudioEnabled: true}))

	// Then B receives an empty history and A learns about u2
	req.Empty(b.history(t))
	req.Equal(core.NewUserConnected("u2", domain.MediaState{IsAudioEnabled: true}), a.last())

	// When u1 says hello on A
	a.reset()
	msg, ok := d.Message("A", "User One", "hello")
	req.True(ok)

	// Then B receives it and A does not
	rm, ok := b.last().(core.ReceiveMessage)
	req.True(ok)
	req.Equal(domain.UserID("u1"), rm.Message.UserID)
	req.Equal("hello", rm.Message.Content)
	req.Equal(msg, rm.Message)
	req.Empty(a.types())

	// When u1 reconnects on C and rejoins r1
	c := connect(d, "C")
	req.NoError(d.Join("C", "r1", "u1", domain.MediaState{}))

	// Then A is superseded and closed, membership is unchanged
	req.Equal(core.NewSuperseded("r1"), a.last())
	req.Equal(1, a.closed)
	req.Equal([]domain.UserID{"u1", "u2"}, d.Rooms.Members("r1"))

	// And C receives the history
	hist := c.history(t)
	req.Len(hist, 1)
	req.Equal("hello", hist[0].Content)

	// And the index points at C only
	_, ok = d.Index.Resolve("A")
	req.False(ok)
	bind, ok := d.Index.Resolve("C")
	req.True(ok)
	req.Equal(app.Binding{RoomID: "r1", UserID: "u1"}, bind)
}

func TestDispatcher_Join_Supersedes_EvictsEachConnectionOnce(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	conns := map[domain.ConnID]*fakeConn{}
	ids := []domain.ConnID{"c1", "c2", "c3", "c4"}

	for i, id := range ids {
		conns[id] = connect(d, id)
		req.NoError(d.Join(id, "room", "alice", domain.MediaState{}))

		// Then only the newest connection owns alice's slot
		m, ok := d.Rooms.Member("room", "alice")
		req.True(ok)
		req.Equal(id, m.ConnID)
		req.Equal([]domain.UserID{"alice"}, d.Rooms.Members("room"))
		if i > 0 {
			req.Equal(1, conns[ids[i-1]].closed)
		}
	}
	for _, id := range ids[:len(ids)-1] {
		req.Equal(1, conns[id].closed, "conn %s", id)
	}
	req.Equal(0, conns["c4"].closed)
	req.Equal(1, d.Index.Len())
	req.Equal(1, d.Connections())
}

func TestDispatcher_HistoryReplay_ExhaustiveAndOrdered(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	connect(d, "A")
	req.NoError(d.Join("A", "r", "u1", domain.MediaState{}))

	// Given N messages in r and a message in another room
	const n = 25
	for i := 0; i < n; i++ {
		_, ok := d.Message("A", "u1", string(rune('a'+i)))
		req.True(ok)
	}
	connect(d, "X")
	req.NoError(d.Join("X", "other", "u9", domain.MediaState{}))
	_, ok := d.Message("X", "u9", "elsewhere")
	req.True(ok)

	// When a new connection joins r
	b := connect(d, "B")
	req.NoError(d.Join("B", "r", "u2", domain.MediaState{}))

	// Then it receives exactly those N messages in append order
	hist := b.history(t)
	req.Len(hist, n)
	for i, m := range hist {
		req.Equal(string(rune('a'+i)), m.Content)
		if i > 0 {
			req.True(m.Timestamp.After(hist[i-1].Timestamp))
		}
	}
}

func TestDispatcher_Broadcast_ExcludesSender(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	a := connect(d, "A")
	b := connect(d, "B")
	c := connect(d, "C")
	req.NoError(d.Join("A", "r", "u1", domain.MediaState{}))
	req.NoError(d.Join("B", "r", "u2", domain.MediaState{}))
	req.NoError(d.Join("C", "r", "u3", domain.MediaState{}))
	a.reset()
	b.reset()
	c.reset()

	// When A sends a message and toggles video and audio
	_, ok := d.Message("A", "u1", "hi")
	req.True(ok)
	req.True(d.ToggleVideo("A", true))
	req.True(d.ToggleAudio("A", false))

	// Then A receives nothing and the peers receive all three
	req.Empty(a.types())
	want := []string{core.TypeReceiveMessage, core.TypeUserToggleVideo, core.TypeUserToggleAudio}
	req.Equal(want, b.types())
	req.Equal(want, c.types())
	req.Equal(core.NewUserToggleAudio("u1", false), c.last())

	m, ok := d.Rooms.Member("r", "u1")
	req.True(ok)
	req.True(m.Media.IsVideoEnabled)
	req.False(m.Media.IsAudioEnabled)
}

func TestDispatcher_Broadcast_StaysInRoom(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	connect(d, "A")
	other := connect(d, "B")
	req.NoError(d.Join("A", "r1", "u1", domain.MediaState{}))
	req.NoError(d.Join("B", "r2", "u2", domain.MediaState{}))
	other.reset()

	_, ok := d.Message("A", "u1", "hi")
	req.True(ok)
	d.Disconnect("A")

	req.Empty(other.types())
}

func TestDispatcher_Disconnect_LastMember_DeletesRoom(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	connect(d, "A")
	b := connect(d, "B")
	req.NoError(d.Join("A", "r", "u1", domain.MediaState{}))
	req.NoError(d.Join("B", "r", "u2", domain.MediaState{}))
	_, ok := d.Message("A", "u1", "before")
	req.True(ok)

	// When u1 disconnects, u2 is told
	d.Disconnect("A")
	req.Equal(core.NewUserDisconnected("u1"), b.last())
	req.Equal([]domain.UserID{"u2"}, d.Rooms.Members("r"))

	// When the last member disconnects
	d.Disconnect("B")

	// Then the room is gone
	req.Empty(d.Rooms.Members("r"))
	req.False(d.Rooms.Exists("r"))
	req.Equal(0, d.Index.Len())

	// And a rejoin starts a fresh room with an empty history
	c := connect(d, "C")
	req.NoError(d.Join("C", "r", "u1", domain.MediaState{}))
	req.Empty(c.history(t))
	req.Equal([]domain.UserID{"u1"}, d.Rooms.Members("r"))
}

func TestDispatcher_StaleDisconnect_IsNoOp(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	connect(d, "A")
	b := connect(d, "B")
	req.NoError(d.Join("A", "r", "u1", domain.MediaState{}))
	req.NoError(d.Join("B", "r", "u2", domain.MediaState{}))

	// Given u1 reconnected on C
	connect(d, "C")
	req.NoError(d.Join("C", "r", "u1", domain.MediaState{}))
	b.reset()

	// When the superseded A finally reports its disconnect
	d.Disconnect("A")
	d.Disconnect("A")

	// Then u1 stays present and nobody hears user-disconnected
	req.Equal([]domain.UserID{"u1", "u2"}, d.Rooms.Members("r"))
	req.Empty(b.types())

	// And a registry-level stale leave is refused too
	req.False(d.Rooms.Leave("r", "u1", "A"))
	m, ok := d.Rooms.Member("r", "u1")
	req.True(ok)
	req.Equal(domain.ConnID("C"), m.ConnID)
}

func TestDispatcher_Join_StateMachine(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()

	// Never connected
	err := d.Join("ghost", "r", "u1", domain.MediaState{})
	req.True(errors.Is(err, ErrUnknownConnection))

	// Joined connections cannot join again
	connect(d, "A")
	req.NoError(d.Join("A", "r", "u1", domain.MediaState{}))
	err = d.Join("A", "r2", "u1", domain.MediaState{})
	req.True(errors.Is(err, ErrAlreadyJoined))
	req.False(d.Rooms.Exists("r2"))

	// Closed connections are gone for good
	d.Disconnect("A")
	err = d.Join("A", "r", "u1", domain.MediaState{})
	req.True(errors.Is(err, ErrUnknownConnection))
	req.False(d.Rooms.Exists("r"))
}

func TestDispatcher_Events_FromUnjoinedConnection_AreIgnored(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	a := connect(d, "A")
	b := connect(d, "B")
	req.NoError(d.Join("B", "r", "u2", domain.MediaState{}))
	b.reset()

	_, ok := d.Message("A", "u1", "hi")
	req.False(ok)
	req.False(d.ToggleVideo("A", true))
	req.False(d.ToggleAudio("A", true))
	d.Disconnect("A")
	d.Disconnect("never-seen")

	req.Empty(a.types())
	req.Empty(b.types())
	req.Equal(0, d.History.Len("r"))
}

func TestDispatcher_Message_UsesServerClock(t *testing.T) {
	req := require.New(t)
	at := time.Date(2030, 5, 6, 7, 8, 9, 0, time.FixedZone("X", 3600))
	d := NewDispatcher(app.SimplePolicy{}, func() time.Time { return at })
	connect(d, "A")
	req.NoError(d.Join("A", "r", "u1", domain.MediaState{}))

	msg, ok := d.Message("A", "Alice", "hi")
	req.True(ok)
	req.True(msg.Timestamp.Equal(at))
	req.Equal(time.UTC, msg.Timestamp.Location())
	req.Equal("Alice", msg.UserName)
	req.Equal([]domain.Message{msg}, d.History.History("r"))
}

func TestDispatcher_Backpressure(t *testing.T) {
	t.Run("simple policy kicks the slow member", func(t *testing.T) {
		req := require.New(t)
		d := NewDispatcher(app.SimplePolicy{}, stepClock())
		connect(d, "A")
		b := connect(d, "B")
		req.NoError(d.Join("A", "r", "u1", domain.MediaState{}))
		req.NoError(d.Join("B", "r", "u2", domain.MediaState{}))
		b.full = true

		_, ok := d.Message("A", "u1", "hi")
		req.True(ok)
		req.Equal(1, b.closed)

		// membership goes away once the transport reports the disconnect
		req.Equal([]domain.UserID{"u1", "u2"}, d.Rooms.Members("r"))
		d.Disconnect("B")
		req.Equal([]domain.UserID{"u1"}, d.Rooms.Members("r"))
	})

	t.Run("tolerant policy keeps the member", func(t *testing.T) {
		req := require.New(t)
		d := NewDispatcher(app.TolerantPolicy{}, stepClock())
		connect(d, "A")
		b := connect(d, "B")
		req.NoError(d.Join("A", "r", "u1", domain.MediaState{}))
		req.NoError(d.Join("B", "r", "u2", domain.MediaState{}))
		b.full = true

		_, ok := d.Message("A", "u1", "hi")
		req.True(ok)
		req.Equal(0, b.closed)
	})
}

func TestDispatcher_Shutdown_ClosesEverything(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	a := connect(d, "A")
	b := connect(d, "B")
	req.NoError(d.Join("A", "r", "u1", domain.MediaState{}))

	d.Shutdown()

	req.Equal(1, a.closed)
	req.Equal(1, b.closed)
	req.Equal(0, d.Connections())
}

func TestDispatcher_ConcurrentReconnects_KeepIndexConsistent(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := domain.ConnID(fmt.Sprintf("conn-%d", i))
			connect(d, id)
			_ = d.Join(id, "r", "same-user", domain.MediaState{})
			if i%3 == 0 {
				d.Disconnect(id)
			}
		}(i)
	}
	wg.Wait()

	// Whatever the interleaving, at most one slot exists and the index
	// agrees with it.
	members := d.Rooms.Members("r")
	req.LessOrEqual(len(members), 1)
	if len(members) == 1 {
		m, ok := d.Rooms.Member("r", "same-user")
		req.True(ok)
		b, ok := d.Index.Resolve(m.ConnID)
		req.True(ok)
		req.Equal(app.Binding{RoomID: "r", UserID: "same-user"}, b)
		req.Equal(1, d.Index.Len())
	} else {
		req.Equal(0, d.Index.Len())
	}
}

func TestDispatcher_Toggle_UnknownField_IsDropped(t *testing.T) {
	req := require.New(t)
	d := newTestDispatcher()
	connect(d, "A")
	b := connect(d, "B")
	req.NoError(d.Join("A", "r", "u1", domain.MediaState{}))
	req.NoError(d.Join("B", "r", "u2", domain.MediaState{}))
	b.reset()

	req.NotPanics(func() {
		req.False(d.toggle("A", app.Toggle(42), true))
	})
	req.Empty(b.types())
}
