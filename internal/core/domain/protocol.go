package domain

import "encoding/json"

// InboundMessage is the only payload shape a chatroom connection may
// send: {"body": "..."}.
type InboundMessage struct {
	Body string `json:"body"`
}

// ParseInbound validates the raw client payload. Anything that is not
// a JSON object with a string body is rejected. An empty string is a
// valid body; only an absent or non-string body fails.
func ParseInbound(raw []byte) (InboundMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return InboundMessage{}, ErrInvalidPayload
	}
	rawBody, ok := fields["body"]
	if !ok {
		return InboundMessage{}, ErrInvalidPayload
	}
	var body *string
	if err := json.Unmarshal(rawBody, &body); err != nil || body == nil {
		return InboundMessage{}, ErrInvalidPayload
	}
	return InboundMessage{Body: *body}, nil
}

// MessageView is the structured input for a per-recipient message
// fragment. Viewer matters: recipients render their own messages
// differently.
type MessageView struct {
	Message *Message
	Viewer  *User
	Room    *Room
}

// OnlineCountView is the structured input for the online-count-plus-
// roster fragment. Count carries the room count minus the acting user,
// Authors are the distinct authors of the room's recent messages.
type OnlineCountView struct {
	Count   int
	Room    *Room
	Authors []User
}

// OnlineStatusView is the viewer-relative global presence snapshot.
type OnlineStatusView struct {
	Viewer          *User
	OnlineUsers     []User
	OnlineInChats   bool
	PublicChatUsers []User
}
