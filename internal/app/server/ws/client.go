package ws

import (
	"context"
	"sync"

	"github.com/Ashika2003/Chat-App/internal/core/domain"
)

// RuntimeClient binds one websocket to a (user, room) subscription. The
// buffered out channel plus the single writeLoop gives each subscriber
// in-order delivery: once two fragments are enqueued in order, they hit
// the wire in order.
type RuntimeClient struct {
	ctx      context.Context
	cancel   context.CancelFunc
	ws       *WebSocket
	userID   string
	roomName string
	out      chan []byte
	once     sync.Once
}

func NewClient(parent context.Context, ws *WebSocket, userID, roomName string) *RuntimeClient {
	ctx, cancel := context.WithCancel(parent)
	c := &RuntimeClient{
		ctx:      ctx,
		cancel:   cancel,
		ws:       ws,
		userID:   userID,
		roomName: roomName,
		out:      make(chan []byte, 256),
	}
	go c.writeLoop()
	return c
}

func (c *RuntimeClient) UserID() string   { return c.userID }
func (c *RuntimeClient) RoomName() string { return c.roomName }

func (c *RuntimeClient) Send(ctx context.Context, data []byte) error {
	select {
	case c.out <- data:
		return nil
	case <-c.ctx.Done():
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears the client down via context cancellation only. The out
// channel is never closed: a fan-out goroutine blocked in Send must get
// ErrSessionClosed back, not a send-on-closed-channel panic that would
// take the sending connection's handler down with it.
func (c *RuntimeClient) Close() {
	c.once.Do(func() {
		c.cancel()
		c.ws.Close()
	})
}

func (c *RuntimeClient) writeLoop() {
	defer c.Close()
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			_ = c.ws.WriteMessage(data)
		}
	}
}
