package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Ashika2003/Chat-App/internal/core/domain"
)

// dialTestConn stands up an upgrading server and returns the client-side
// gorilla connection. The server side just drains frames until the peer
// goes away.
func dialTestConn(t *testing.T) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func TestClientSendRacingCloseDoesNotPanic(t *testing.T) {
	req := require.New(t)

	ctx := context.Background()
	conn := dialTestConn(t)
	client := NewClient(ctx, NewWebSocket(ctx, conn), "alice", "general")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				err := client.Send(ctx, []byte("<div>frame</div>"))
				if err != nil && !errors.Is(err, domain.ErrSessionClosed) {
					t.Errorf("unexpected send error: %v", err)
					return
				}
			}
		}()
	}

	time.Sleep(time.Millisecond)
	client.Close()
	wg.Wait()

	// Late senders back off with the session error once the buffer has
	// no reader left.
	var closed bool
	for i := 0; i < 300; i++ {
		if err := client.Send(ctx, []byte("late")); err != nil {
			req.ErrorIs(err, domain.ErrSessionClosed)
			closed = true
			break
		}
	}
	req.True(closed)
}

func TestClientSendAfterCloseReturnsSessionClosed(t *testing.T) {
	req := require.New(t)

	ctx := context.Background()
	conn := dialTestConn(t)
	client := NewClient(ctx, NewWebSocket(ctx, conn), "bob", "general")

	client.Close()

	// The buffer may still absorb a few frames, but once it holds no
	// reader every caller has to come back with the session error.
	var closed bool
	for i := 0; i < 300; i++ {
		if err := client.Send(ctx, []byte("x")); err != nil {
			req.ErrorIs(err, domain.ErrSessionClosed)
			closed = true
			break
		}
	}
	req.True(closed)
}
