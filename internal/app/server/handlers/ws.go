package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Ashika2003/Chat-App/internal/app/server/ws"
	"github.com/Ashika2003/Chat-App/internal/core/domain"
	"github.com/Ashika2003/Chat-App/internal/core/services"
	"github.com/Ashika2003/Chat-App/pkg/logging"
	"github.com/Ashika2003/Chat-App/pkg/middleware"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // tighten later
	},
}

// ChatHandler serves the per-room chat socket at /ws/chatroom/{chatroom_name}.
type ChatHandler struct {
	chatrooms *services.ChatroomService
}

func NewChatHandler(chatrooms *services.ChatroomService) *ChatHandler {
	return &ChatHandler{chatrooms: chatrooms}
}

func (h *ChatHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	span := trace.SpanFromContext(r.Context())

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		log.ErrorContext(r.Context(), "ws handler - unauthorised missing user_id")
		http.Error(w, "Unauthorized: User ID missing", http.StatusUnauthorized)
		return
	}
	span.SetAttributes(attribute.String("user.id", userID))

	roomName := r.PathValue("chatroom_name")
	// The handshake is refused before the upgrade if the room does not
	// exist; no connection is ever established for an unknown room.
	if _, err := h.chatrooms.LookupRoom(r.Context(), roomName); err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
		} else {
			http.Error(w, "room lookup failed", http.StatusServiceUnavailable)
		}
		return
	}
	span.SetAttributes(attribute.String("chat.room", roomName))

	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - upgrade failed", logging.Err(err))
		cancel()
		return
	}
	conn.SetCloseHandler(func(code int, text string) error {
		cancel()
		return nil
	})
	socket := ws.NewWebSocket(ctx, conn)
	client := ws.NewClient(ctx, socket, userID, roomName)

	session, err := h.chatrooms.Connect(ctx, client)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - connect failed",
			logging.Room(roomName), logging.User(userID), logging.Err(err))
		client.Close()
		cancel()
		return
	}
	defer func() {
		// Cancel first so the heartbeat goroutine stops touching the
		// presence set before Disconnect removes the user from it.
		cancel()
		_ = h.chatrooms.Disconnect(context.WithoutCancel(ctx), client)
		client.Close()
	}()
	log.InfoContext(r.Context(), "ws handler - chat connection established",
		logging.Room(roomName), logging.User(userID))

	go h.chatrooms.Heartbeat(ctx, session)

	socket.ReadLoop(func(data []byte) {
		if err := h.chatrooms.Receive(ctx, session, data); err != nil {
			// One bad receive drops that message only; the connection
			// stays open.
			log.WarnContext(ctx, "ws handler - receive rejected",
				logging.Room(roomName), logging.User(userID), logging.Err(err))
		}
	})
}

// StatusHandler serves the global online-status socket at /ws/online-status.
type StatusHandler struct {
	status *services.StatusService
}

func NewStatusHandler(status *services.StatusService) *StatusHandler {
	return &StatusHandler{status: status}
}

func (h *StatusHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		log.ErrorContext(r.Context(), "status handler - unauthorised missing user_id")
		http.Error(w, "Unauthorized: User ID missing", http.StatusUnauthorized)
		return
	}

	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "status handler - upgrade failed", logging.Err(err))
		cancel()
		return
	}
	conn.SetCloseHandler(func(code int, text string) error {
		cancel()
		return nil
	})
	socket := ws.NewWebSocket(ctx, conn)
	client := ws.NewClient(ctx, socket, userID, domain.OnlineStatusRoom)

	if _, err := h.status.Connect(ctx, client); err != nil {
		log.ErrorContext(r.Context(), "status handler - connect failed",
			logging.User(userID), logging.Err(err))
		client.Close()
		cancel()
		return
	}
	defer func() {
		cancel()
		_ = h.status.Disconnect(context.WithoutCancel(ctx), client)
		client.Close()
	}()
	log.InfoContext(r.Context(), "status handler - status connection established",
		logging.User(userID))

	// The status socket is push-only; inbound frames are ignored.
	socket.ReadLoop(func([]byte) {})
}
