package domain

import (
	"errors"
	"time"
)

const MaxContentLen = 4096

var (
	ErrContentEmpty   = errors.New("message content empty")
	ErrContentTooLong = errors.New("message content too long")
)

// Message is an immutable chat line. Timestamp is assigned by the server.
type Message struct {
	UserID    UserID    `json:"userId"`
	UserName  string    `json:"userName"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func ValidateContent(content string) error {
	if len(content) == 0 {
		return ErrContentEmpty
	}
	if len(content) > MaxContentLen {
		return ErrContentTooLong
	}
	return nil
}
