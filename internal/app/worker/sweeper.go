package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/Ashika2003/Chat-App/internal/core/contracts"
	"github.com/Ashika2003/Chat-App/internal/core/domain"
	"github.com/Ashika2003/Chat-App/pkg/logging"
)

// Recounter is the slice of the chatroom service the sweeper needs:
// push a fresh online count to a room after an eviction.
type Recounter interface {
	RecountOnline(ctx context.Context, roomName string) error
}

// StatusBroadcaster rebroadcasts the global presence view.
type StatusBroadcaster interface {
	Broadcast(ctx context.Context)
}

// PresenceSweeper evicts membership-store entries whose heartbeat went
// stale, then triggers the same recounts a clean disconnect would have.
// Without it a crashed client stays "online" forever.
type PresenceSweeper struct {
	log        *slog.Logger
	membership contracts.MembershipStore
	registry   contracts.Registry
	chatrooms  Recounter
	status     StatusBroadcaster
	interval   time.Duration
	sessionTTL time.Duration
}

func NewPresenceSweeper(
	log *slog.Logger,
	membership contracts.MembershipStore,
	registry contracts.Registry,
	chatrooms Recounter,
	status StatusBroadcaster,
	interval time.Duration,
	sessionTTL time.Duration,
) *PresenceSweeper {
	return &PresenceSweeper{
		log:        log,
		membership: membership,
		registry:   registry,
		chatrooms:  chatrooms,
		status:     status,
		interval:   interval,
		sessionTTL: sessionTTL,
	}
}

func (s *PresenceSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper - stopped")
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *PresenceSweeper) sweep(ctx context.Context) {
	for _, roomName := range s.registry.Rooms() {
		removed, err := s.membership.PruneExpired(ctx, roomName, s.sessionTTL)
		if err != nil {
			s.log.ErrorContext(ctx, "sweeper - prune failed",
				logging.Room(roomName), logging.Err(err))
			continue
		}
		if len(removed) == 0 {
			continue
		}
		s.log.InfoContext(ctx, "sweeper - evicted stale sessions",
			logging.Room(roomName), slog.Int("evicted", len(removed)))
		if roomName == domain.OnlineStatusRoom {
			s.status.Broadcast(ctx)
			continue
		}
		if err := s.chatrooms.RecountOnline(ctx, roomName); err != nil {
			s.log.ErrorContext(ctx, "sweeper - recount failed",
				logging.Room(roomName), logging.Err(err))
		}
	}
}
