package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Ashika2003/Chat-App/internal/core/contracts"
	"github.com/Ashika2003/Chat-App/internal/core/domain"
	"github.com/Ashika2003/Chat-App/pkg/logging"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("chatroom-service")

// recentWindow is how many messages back the roster broadcast looks
// when collecting distinct authors.
const recentWindow = 30

// ChatroomService orchestrates join, leave, and message flow for chat
// rooms: the per-room pub/sub plus presence state machine.
//
// Presence is reference-counted: the membership store is touched only
// when a user's first connection to a room joins or their last one
// leaves, so a second tab never double-counts and closing one of two
// tabs never marks the user offline.
type ChatroomService struct {
	log        *slog.Logger
	rooms      domain.RoomRepository
	messages   domain.MessageRepository
	users      domain.UserRepository
	membership contracts.MembershipStore
	registry   contracts.Registry
	renderer   contracts.Renderer
	tx         contracts.Transactor
	heartbeat  time.Duration

	mu        sync.Mutex
	roomLocks map[string]*sync.Mutex
}

func NewChatroomService(
	log *slog.Logger,
	rooms domain.RoomRepository,
	messages domain.MessageRepository,
	users domain.UserRepository,
	membership contracts.MembershipStore,
	registry contracts.Registry,
	renderer contracts.Renderer,
	tx contracts.Transactor,
	heartbeat time.Duration,
) *ChatroomService {
	return &ChatroomService{
		log:        log,
		rooms:      rooms,
		messages:   messages,
		users:      users,
		membership: membership,
		registry:   registry,
		renderer:   renderer,
		tx:         tx,
		heartbeat:  heartbeat,
		roomLocks:  make(map[string]*sync.Mutex),
	}
}

// roomLock serializes fan-out per room. Enqueue order under the lock is
// the room's arrival order; the per-client write loop preserves it from
// there. Rooms never contend with each other.
func (s *ChatroomService) roomLock(roomName string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.roomLocks[roomName]
	if !ok {
		l = &sync.Mutex{}
		s.roomLocks[roomName] = l
	}
	return l
}

// LookupRoom resolves a room by name so the handshake can be refused
// before the socket is upgraded.
func (s *ChatroomService) LookupRoom(ctx context.Context, name string) (*domain.Room, error) {
	room, err := s.rooms.GetRoomByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// Connect registers the client in the room registry and, when this is
// the user's first live connection to the room, records them online and
// rebroadcasts the count. The connection is accepted only if both
// updates succeed.
func (s *ChatroomService) Connect(
	ctx context.Context,
	client contracts.Client,
) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "ChatroomService.Connect", trace.WithAttributes(
		attribute.String("user.id", client.UserID()),
		attribute.String("chat.room", client.RoomName()),
	))
	defer span.End()

	roomName := client.RoomName()
	room, err := s.rooms.GetRoomByName(ctx, roomName)
	if err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "chatroom - connect - room lookup failed",
			logging.Room(roomName), logging.User(client.UserID()), logging.Err(err))
		return nil, err
	}

	connections := s.registry.Join(client)
	if connections == 1 {
		online, err := s.membership.Contains(ctx, roomName, client.UserID())
		if err != nil {
			s.registry.Leave(client)
			span.RecordError(err)
			span.SetStatus(codes.Error, "membership check failed")
			return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		if !online {
			if err := s.membership.Add(ctx, roomName, client.UserID()); err != nil {
				s.registry.Leave(client)
				span.RecordError(err)
				span.SetStatus(codes.Error, "membership add failed")
				return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
			}
			s.broadcastOnlineCount(ctx, room)
		}
	}

	s.log.InfoContext(ctx, "chatroom - connect - client joined",
		logging.Room(roomName), logging.User(client.UserID()))
	span.SetStatus(codes.Ok, "connected")
	return domain.NewSession(client.UserID(), roomName), nil
}

// Disconnect unregisters the client. Only when the user's last live
// connection to the room goes away is the user removed from the online
// set and the count rebroadcast. Disconnecting a client that never
// connected is a no-op.
func (s *ChatroomService) Disconnect(ctx context.Context, client contracts.Client) error {
	ctx, span := tracer.Start(ctx, "ChatroomService.Disconnect", trace.WithAttributes(
		attribute.String("user.id", client.UserID()),
		attribute.String("chat.room", client.RoomName()),
	))
	defer span.End()

	roomName := client.RoomName()
	remaining := s.registry.Leave(client)
	if remaining > 0 {
		return nil
	}

	online, err := s.membership.Contains(ctx, roomName, client.UserID())
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if !online {
		return nil
	}
	if err := s.membership.Remove(ctx, roomName, client.UserID()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "membership remove failed")
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	room, err := s.rooms.GetRoomByName(ctx, roomName)
	if err != nil {
		span.RecordError(err)
		return err
	}
	s.broadcastOnlineCount(ctx, room)
	s.log.InfoContext(ctx, "chatroom - disconnect - client left",
		logging.Room(roomName), logging.User(client.UserID()))
	return nil
}

// Receive handles one inbound client payload: validate, persist, then
// fan out. A message that failed to persist is never broadcast.
func (s *ChatroomService) Receive(ctx context.Context, session *domain.Session, raw []byte) error {
	ctx, span := tracer.Start(ctx, "ChatroomService.Receive", trace.WithAttributes(
		attribute.String("user.id", session.UserID),
		attribute.String("chat.room", session.RoomName),
		attribute.Int("payload_size", len(raw)),
	))
	defer span.End()

	in, err := domain.ParseInbound(raw)
	if err != nil {
		span.RecordError(err)
		s.log.WarnContext(ctx, "chatroom - receive - invalid payload",
			logging.Room(session.RoomName), logging.User(session.UserID))
		return err
	}

	msg := &domain.Message{
		ID:        uuid.New(),
		RoomName:  session.RoomName,
		AuthorID:  session.UserID,
		Body:      in.Body,
		CreatedAt: time.Now(),
	}
	if err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		return s.messages.CreateMessage(txCtx, msg)
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "message persist failed")
		s.log.ErrorContext(ctx, "chatroom - receive - persist failed",
			logging.Room(session.RoomName), logging.User(session.UserID), logging.Err(err))
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	if err := s.broadcastMessage(ctx, session.RoomName, msg.ID); err != nil {
		span.RecordError(err)
		return err
	}
	s.log.InfoContext(ctx, "chatroom - receive - message delivered",
		logging.Room(session.RoomName), logging.MessageID(msg.ID.String()))
	return nil
}

// broadcastMessage re-fetches the persisted message and delivers a
// per-viewer rendering to every current subscriber of the room.
func (s *ChatroomService) broadcastMessage(ctx context.Context, roomName string, messageID uuid.UUID) error {
	room, err := s.rooms.GetRoomByName(ctx, roomName)
	if err != nil {
		return err
	}
	msg, err := s.messages.GetMessageByID(ctx, messageID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	lock := s.roomLock(roomName)
	lock.Lock()
	defer lock.Unlock()

	for _, client := range s.registry.Snapshot(roomName) {
		viewer, err := s.users.GetUserByID(ctx, client.UserID())
		if err != nil {
			s.log.ErrorContext(ctx, "chatroom - broadcast message - viewer lookup failed",
				logging.Room(roomName), logging.User(client.UserID()), logging.Err(err))
			continue
		}
		frag, err := s.renderer.RenderMessage(domain.MessageView{
			Message: msg,
			Viewer:  viewer,
			Room:    room,
		})
		if err != nil {
			s.log.ErrorContext(ctx, "chatroom - broadcast message - render failed",
				logging.Room(roomName), logging.User(client.UserID()), logging.Err(err))
			continue
		}
		if err := client.Send(ctx, frag); err != nil {
			s.log.WarnContext(ctx, "chatroom - broadcast message - send failed",
				logging.Room(roomName), logging.User(client.UserID()), logging.Err(err))
		}
	}
	return nil
}

// RecountOnline recomputes the room's online count and pushes it, with
// the author roster of the recent message window, to every subscriber.
// Join and leave transitions call this; the sweeper calls it when it
// evicts a stale session.
func (s *ChatroomService) RecountOnline(ctx context.Context, roomName string) error {
	room, err := s.rooms.GetRoomByName(ctx, roomName)
	if err != nil {
		return err
	}
	s.broadcastOnlineCount(ctx, room)
	return nil
}

func (s *ChatroomService) broadcastOnlineCount(ctx context.Context, room *domain.Room) {
	count, err := s.membership.Count(ctx, room.Name)
	if err != nil {
		s.log.ErrorContext(ctx, "chatroom - online count - count failed",
			logging.Room(room.Name), logging.Err(err))
		return
	}
	// The acting connection counts itself, so the displayed number is
	// everyone else. One room-wide value, not recomputed per recipient.
	onlineCount := count - 1
	if onlineCount < 0 {
		onlineCount = 0
	}

	authors, err := s.recentAuthors(ctx, room.Name)
	if err != nil {
		s.log.ErrorContext(ctx, "chatroom - online count - roster failed",
			logging.Room(room.Name), logging.Err(err))
		return
	}
	frag, err := s.renderer.RenderOnlineCount(domain.OnlineCountView{
		Count:   onlineCount,
		Room:    room,
		Authors: authors,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "chatroom - online count - render failed",
			logging.Room(room.Name), logging.Err(err))
		return
	}

	lock := s.roomLock(room.Name)
	lock.Lock()
	defer lock.Unlock()

	for _, client := range s.registry.Snapshot(room.Name) {
		if err := client.Send(ctx, frag); err != nil {
			s.log.WarnContext(ctx, "chatroom - online count - send failed",
				logging.Room(room.Name), logging.User(client.UserID()), logging.Err(err))
		}
	}
	s.log.InfoContext(ctx, "chatroom - online count - broadcast",
		logging.Room(room.Name), logging.OnlineCount(onlineCount))
}

// recentAuthors resolves the distinct authors of the room's recent
// message window to full user rows for the roster display.
func (s *ChatroomService) recentAuthors(ctx context.Context, roomName string) ([]domain.User, error) {
	msgs, err := s.messages.RecentMessages(ctx, roomName, recentWindow)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(msgs))
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m.AuthorID]; ok {
			continue
		}
		seen[m.AuthorID] = struct{}{}
		ids = append(ids, m.AuthorID)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.users.FilterUsersByIDs(ctx, ids)
}

// Heartbeat refreshes the session's last-seen score until the
// connection context is canceled. Keeps crashed clients from lingering
// in the online set past the sweep TTL.
func (s *ChatroomService) Heartbeat(ctx context.Context, session *domain.Session) {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.membership.Touch(ctx, session.RoomName, session.UserID); err != nil && !errors.Is(err, context.Canceled) {
				s.log.WarnContext(ctx, "chatroom - heartbeat - touch failed",
					logging.Room(session.RoomName), logging.User(session.UserID), logging.Err(err))
			}
		}
	}
}
