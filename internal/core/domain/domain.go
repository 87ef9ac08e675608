package domain

import (
	"time"

	"github.com/google/uuid"
)

// Well-known rooms. "online-status" is the global presence room every
// signed-in client joins; "public-chat" is the open room the status
// aggregation consults.
const (
	OnlineStatusRoom = "online-status"
	PublicChatRoom   = "public-chat"
)

// User is an identity reference owned by the external store. The core
// never mutates users, it only resolves ids to display attributes.
type User struct {
	ID          string
	Username    string
	DisplayName string
	AvatarURL   string
}

// Room is a named chat context: public, private 1:1, or named group.
// The online-user set lives in the membership store, not here.
type Room struct {
	Name      string
	GroupName string // non-empty for named group chats
	IsPrivate bool
	CreatedAt time.Time
}

// IsGroup reports whether the room is a named group chat.
func (r *Room) IsGroup() bool { return r.GroupName != "" }

// Message is created on receive and immutable afterwards.
type Message struct {
	ID        uuid.UUID
	RoomName  string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}

// Session is the live state bound to one physical connection: who the
// user is and which room the connection is subscribed to. Never
// persisted; lifetime equals the connection's.
type Session struct {
	UserID   string
	RoomName string
	JoinedAt time.Time
}

func NewSession(userID, roomName string) *Session {
	return &Session{
		UserID:   userID,
		RoomName: roomName,
		JoinedAt: time.Now(),
	}
}
