package contracts

import "github.com/Ashika2003/Chat-App/internal/core/domain"

// Renderer turns structured event data into the markup fragments that
// go down the wire. It is a pure function of its input: the core never
// renders inside a state mutation, only at the fan-out boundary.
type Renderer interface {
	RenderMessage(view domain.MessageView) ([]byte, error)
	RenderOnlineCount(view domain.OnlineCountView) ([]byte, error)
	RenderOnlineStatus(view domain.OnlineStatusView) ([]byte, error)
}
