package domain

import "errors"

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrMessageNotFound  = errors.New("message not found")
	ErrInvalidPayload   = errors.New("invalid message payload")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrSessionClosed    = errors.New("session closed")
)
