package domain

import (
	"context"

	"github.com/google/uuid"
)

// RoomRepository resolves rooms by name and lists the rooms a user
// belongs to (persistent membership, distinct from the online set).
type RoomRepository interface {
	GetRoomByName(ctx context.Context, name string) (*Room, error)
	// ListRoomsForUser returns every room the user is a member of.
	ListRoomsForUser(ctx context.Context, userID string) ([]Room, error)
}

// MessageRepository handles message persistence and the recent-window
// reads the roster broadcast needs.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *Message) error
	GetMessageByID(ctx context.Context, id uuid.UUID) (*Message, error)
	// RecentMessages returns up to limit messages, newest first.
	RecentMessages(ctx context.Context, roomName string, limit int) ([]Message, error)
}

// UserRepository resolves identity references to full user rows.
type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*User, error)
	// FilterUsersByIDs resolves a set of ids; unknown ids are skipped.
	FilterUsersByIDs(ctx context.Context, ids []string) ([]User, error)
}
