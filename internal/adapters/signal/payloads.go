package signal

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/go-playground/validator/v10"
)

// Error codes sent in {"type":"error"} replies.
const (
	ErrCodeBadPayload       = "bad_payload"
	ErrCodeUnknownType      = "unknown_type"
	ErrCodeAlreadyJoined    = "already_joined"
	ErrCodeNotJoined        = "not_joined"
	ErrCodeIdentityMismatch = "identity_mismatch"
	ErrCodeRateLimited      = "rate_limited"
)

type joinPayload struct {
	RoomID       string            `json:"roomId" validate:"roomid"`
	UserID       string            `json:"userId" validate:"userid"`
	InitialState domain.MediaState `json:"initialState"`
}

type messageBody struct {
	UserID   string `json:"userId" validate:"userid"`
	UserName string `json:"userName" validate:"username"`
	Content  string `json:"content" validate:"content"`
}

type newMessagePayload struct {
	RoomID  string      `json:"roomId" validate:"roomid"`
	Message messageBody `json:"message"`
}

type togglePayload struct {
	RoomID  string `json:"roomId" validate:"roomid"`
	UserID  string `json:"userId" validate:"userid"`
	Enabled *bool  `json:"enabled" validate:"required"`
}

type errorReply struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	must := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %s: %v", tag, err))
		}
	}
	must("roomid", func(fl validator.FieldLevel) bool {
		return domain.RoomID(fl.Field().String()).Validate() == nil
	})
	must("userid", func(fl validator.FieldLevel) bool {
		return domain.UserID(fl.Field().String()).Validate() == nil
	})
	must("username", func(fl validator.FieldLevel) bool {
		return domain.ValidateUsername(fl.Field().String()) == nil
	})
	must("content", func(fl validator.FieldLevel) bool {
		return domain.ValidateContent(fl.Field().String()) == nil
	})
	return v
}

// decode parses and validates an inbound frame.
func decode(data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}
