package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnIndex_Bind_Resolve_Unbind(t *testing.T) {
	req := require.New(t)
	idx := NewConnIndex()

	// Unknown connection resolves to nothing
	_, ok := idx.Resolve("A")
	req.False(ok)

	idx.Bind("A", "r1", "u1")
	b, ok := idx.Resolve("A")
	req.True(ok)
	req.Equal(Binding{RoomID: "r1", UserID: "u1"}, b)

	// Rebinding overwrites
	idx.Bind("A", "r2", "u2")
	b, _ = idx.Resolve("A")
	req.Equal(Binding{RoomID: "r2", UserID: "u2"}, b)
	req.Equal(1, idx.Len())

	idx.Unbind("A")
	_, ok = idx.Resolve("A")
	req.False(ok)
	req.Equal(0, idx.Len())

	// Unbinding twice is harmless
	idx.Unbind("A")
	req.Equal(0, idx.Len())
}
