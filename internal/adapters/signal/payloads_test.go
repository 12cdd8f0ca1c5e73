package signal

import (
	"strings"
	"testing"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestDecode_Join(t *testing.T) {
	req := require.New(t)

	var p joinPayload
	req.NoError(decode([]byte(`{"type":"join-room","roomId":"r1","userId":"u1","initialState":{"isVideoEnabled":true}}`), &p))
	req.Equal("r1", p.RoomID)
	req.Equal("u1", p.UserID)
	req.Equal(domain.MediaState{IsVideoEnabled: true}, p.InitialState)

	long := strings.Repeat("x", domain.MaxRoomIDLen+1)
	req.Error(decode([]byte(`{"roomId":"`+long+`","userId":"u1"}`), &joinPayload{}))
	req.Error(decode([]byte(`{"roomId":"r1","userId":""}`), &joinPayload{}))
	req.Error(decode([]byte(`{"roomId":`), &joinPayload{}))
}

func TestDecode_Message(t *testing.T) {
	req := require.New(t)

	var p newMessagePayload
	req.NoError(decode([]byte(`{"roomId":"r1","message":{"userId":"u1","content":"hi"}}`), &p))
	req.Equal("hi", p.Message.Content)
	req.Empty(p.Message.UserName)

	tooLong := strings.Repeat("y", domain.MaxContentLen+1)
	req.Error(decode([]byte(`{"roomId":"r1","message":{"userId":"u1","content":"`+tooLong+`"}}`), &newMessagePayload{}))
	req.Error(decode([]byte(`{"roomId":"r1","message":{"content":"hi"}}`), &newMessagePayload{}))
}

func TestDecode_Toggle_Requires_Enabled(t *testing.T) {
	req := require.New(t)

	var p togglePayload
	req.NoError(decode([]byte(`{"roomId":"r1","userId":"u1","enabled":false}`), &p))
	req.NotNil(p.Enabled)
	req.False(*p.Enabled)

	req.Error(decode([]byte(`{"roomId":"r1","userId":"u1"}`), &togglePayload{}))
}
