package core

import "github.com/dkeye/Huddle/internal/domain"

// Outbound event names.
const (
	TypeMessageHistory   = "message-history"
	TypeUserConnected    = "user-connected"
	TypeReceiveMessage   = "receive-message"
	TypeUserToggleVideo  = "user-toggle-video"
	TypeUserToggleAudio  = "user-toggle-audio"
	TypeUserDisconnected = "user-disconnected"
	TypeSuperseded       = "superseded"
)

// Event is a server->client event. Implementations are plain structs
// that marshal to a flat JSON object carrying its type.
type Event interface {
	EventType() string
}

type MessageHistory struct {
	Type     string           `json:"type"`
	Messages []domain.Message `json:"messages"`
}

func NewMessageHistory(msgs []domain.Message) MessageHistory {
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return MessageHistory{Type: TypeMessageHistory, Messages: msgs}
}

func (e MessageHistory) EventType() string { return e.Type }

type UserConnected struct {
	Type         string            `json:"type"`
	UserID       domain.UserID     `json:"userId"`
	InitialState domain.MediaState `json:"initialState"`
}

func NewUserConnected(user domain.UserID, state domain.MediaState) UserConnected {
	return UserConnected{Type: TypeUserConnected, UserID: user, InitialState: state}
}

func (e UserConnected) EventType() string { return e.Type }

type ReceiveMessage struct {
	Type    string         `json:"type"`
	Message domain.Message `json:"message"`
}

func NewReceiveMessage(msg domain.Message) ReceiveMessage {
	return ReceiveMessage{Type: TypeReceiveMessage, Message: msg}
}

func (e ReceiveMessage) EventType() string { return e.Type }

// UserToggle carries either user-toggle-video or user-toggle-audio.
type UserToggle struct {
	Type    string        `json:"type"`
	UserID  domain.UserID `json:"userId"`
	Enabled bool          `json:"enabled"`
}

func NewUserToggleVideo(user domain.UserID, enabled bool) UserToggle {
	return UserToggle{Type: TypeUserToggleVideo, UserID: user, Enabled: enabled}
}

func NewUserToggleAudio(user domain.UserID, enabled bool) UserToggle {
	return UserToggle{Type: TypeUserToggleAudio, UserID: user, Enabled: enabled}
}

func (e UserToggle) EventType() string { return e.Type }

type UserDisconnected struct {
	Type   string        `json:"type"`
	UserID domain.UserID `json:"userId"`
}

func NewUserDisconnected(user domain.UserID) UserDisconnected {
	return UserDisconnected{Type: TypeUserDisconnected, UserID: user}
}

func (e UserDisconnected) EventType() string { return e.Type }

// Superseded is sent to a connection right before it is closed because
// the same user joined the same room from a newer connection.
type Superseded struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
}

func NewSuperseded(room domain.RoomID) Superseded {
	return Superseded{Type: TypeSuperseded, RoomID: room}
}

func (e Superseded) EventType() string { return e.Type }
