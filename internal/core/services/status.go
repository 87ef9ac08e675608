package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Ashika2003/Chat-App/internal/core/contracts"
	"github.com/Ashika2003/Chat-App/internal/core/domain"
	"github.com/Ashika2003/Chat-App/pkg/logging"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StatusService aggregates cross-room presence for the global
// online-status room. Every join or leave there triggers a full
// recompute and rebroadcast; the view is self-relative, so each
// subscriber gets its own rendering that excludes itself and looks at
// its own rooms.
type StatusService struct {
	log        *slog.Logger
	rooms      domain.RoomRepository
	users      domain.UserRepository
	membership contracts.MembershipStore
	registry   contracts.Registry
	renderer   contracts.Renderer
}

func NewStatusService(
	log *slog.Logger,
	rooms domain.RoomRepository,
	users domain.UserRepository,
	membership contracts.MembershipStore,
	registry contracts.Registry,
	renderer contracts.Renderer,
) *StatusService {
	return &StatusService{
		log:        log,
		rooms:      rooms,
		users:      users,
		membership: membership,
		registry:   registry,
		renderer:   renderer,
	}
}

// Connect joins the client to the global status room and rebroadcasts
// everyone's view.
func (s *StatusService) Connect(ctx context.Context, client contracts.Client) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "StatusService.Connect", trace.WithAttributes(
		attribute.String("user.id", client.UserID()),
	))
	defer span.End()

	if _, err := s.rooms.GetRoomByName(ctx, domain.OnlineStatusRoom); err != nil {
		span.RecordError(err)
		return nil, err
	}

	connections := s.registry.Join(client)
	if connections == 1 {
		online, err := s.membership.Contains(ctx, domain.OnlineStatusRoom, client.UserID())
		if err != nil {
			s.registry.Leave(client)
			span.RecordError(err)
			span.SetStatus(codes.Error, "membership check failed")
			return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		if !online {
			if err := s.membership.Add(ctx, domain.OnlineStatusRoom, client.UserID()); err != nil {
				s.registry.Leave(client)
				span.RecordError(err)
				span.SetStatus(codes.Error, "membership add failed")
				return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
			}
		}
	}

	s.Broadcast(ctx)
	s.log.InfoContext(ctx, "status - connect - client joined", logging.User(client.UserID()))
	return domain.NewSession(client.UserID(), domain.OnlineStatusRoom), nil
}

// Disconnect removes the client from the global room and rebroadcasts.
func (s *StatusService) Disconnect(ctx context.Context, client contracts.Client) error {
	ctx, span := tracer.Start(ctx, "StatusService.Disconnect", trace.WithAttributes(
		attribute.String("user.id", client.UserID()),
	))
	defer span.End()

	remaining := s.registry.Leave(client)
	if remaining == 0 {
		online, err := s.membership.Contains(ctx, domain.OnlineStatusRoom, client.UserID())
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		if online {
			if err := s.membership.Remove(ctx, domain.OnlineStatusRoom, client.UserID()); err != nil {
				span.RecordError(err)
				return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
			}
		}
	}

	s.Broadcast(ctx)
	s.log.InfoContext(ctx, "status - disconnect - client left", logging.User(client.UserID()))
	return nil
}

// Broadcast pushes a freshly computed, viewer-relative presence payload
// to every subscriber of the global room.
func (s *StatusService) Broadcast(ctx context.Context) {
	for _, client := range s.registry.Snapshot(domain.OnlineStatusRoom) {
		view, err := s.viewFor(ctx, client.UserID())
		if err != nil {
			s.log.ErrorContext(ctx, "status - broadcast - view failed",
				logging.User(client.UserID()), logging.Err(err))
			continue
		}
		frag, err := s.renderer.RenderOnlineStatus(*view)
		if err != nil {
			s.log.ErrorContext(ctx, "status - broadcast - render failed",
				logging.User(client.UserID()), logging.Err(err))
			continue
		}
		if err := client.Send(ctx, frag); err != nil {
			s.log.WarnContext(ctx, "status - broadcast - send failed",
				logging.User(client.UserID()), logging.Err(err))
		}
	}
}

// viewFor computes one user's cross-room presence view: who else is in
// the global room, who else is in the public room, and whether any of
// the user's private or group rooms has someone else online.
func (s *StatusService) viewFor(ctx context.Context, userID string) (*domain.OnlineStatusView, error) {
	viewer, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	onlineUsers, err := s.othersOnline(ctx, domain.OnlineStatusRoom, userID)
	if err != nil {
		return nil, err
	}
	publicUsers, err := s.othersOnline(ctx, domain.PublicChatRoom, userID)
	if err != nil {
		return nil, err
	}

	onlineInChats := len(publicUsers) > 0
	if !onlineInChats {
		myRooms, err := s.rooms.ListRoomsForUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, room := range myRooms {
			if !room.IsPrivate && !room.IsGroup() {
				continue
			}
			others, err := s.otherMemberIDs(ctx, room.Name, userID)
			if err != nil {
				return nil, err
			}
			if len(others) > 0 {
				onlineInChats = true
				break
			}
		}
	}

	return &domain.OnlineStatusView{
		Viewer:          viewer,
		OnlineUsers:     onlineUsers,
		OnlineInChats:   onlineInChats,
		PublicChatUsers: publicUsers,
	}, nil
}

func (s *StatusService) otherMemberIDs(ctx context.Context, roomName, selfID string) ([]string, error) {
	members, err := s.membership.Members(ctx, roomName)
	if err != nil {
		return nil, err
	}
	others := members[:0:0]
	for _, id := range members {
		if id != selfID {
			others = append(others, id)
		}
	}
	return others, nil
}

func (s *StatusService) othersOnline(ctx context.Context, roomName, selfID string) ([]domain.User, error) {
	ids, err := s.otherMemberIDs(ctx, roomName, selfID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.users.FilterUsersByIDs(ctx, ids)
}
