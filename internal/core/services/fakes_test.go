package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Ashika2003/Chat-App/internal/core/domain"

	"github.com/google/uuid"
)

// In-memory collaborators for service tests. Only the behavior the
// contracts promise, nothing more.

type fakeRoomRepo struct {
	rooms       map[string]*domain.Room
	memberships map[string][]string // userID → room names
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{
		rooms:       make(map[string]*domain.Room),
		memberships: make(map[string][]string),
	}
}

func (f *fakeRoomRepo) addRoom(room *domain.Room, memberIDs ...string) {
	f.rooms[room.Name] = room
	for _, id := range memberIDs {
		f.memberships[id] = append(f.memberships[id], room.Name)
	}
}

func (f *fakeRoomRepo) GetRoomByName(_ context.Context, name string) (*domain.Room, error) {
	room, ok := f.rooms[name]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

func (f *fakeRoomRepo) ListRoomsForUser(_ context.Context, userID string) ([]domain.Room, error) {
	var out []domain.Room
	for _, name := range f.memberships[userID] {
		out = append(out, *f.rooms[name])
	}
	return out, nil
}

type fakeMessageRepo struct {
	mu         sync.Mutex
	messages   []domain.Message
	failCreate error
}

func (f *fakeMessageRepo) CreateMessage(_ context.Context, msg *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return f.failCreate
	}
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeMessageRepo) GetMessageByID(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.messages {
		if f.messages[i].ID == id {
			m := f.messages[i]
			return &m, nil
		}
	}
	return nil, domain.ErrMessageNotFound
}

func (f *fakeMessageRepo) RecentMessages(_ context.Context, roomName string, limit int) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Message
	for i := len(f.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if f.messages[i].RoomName == roomName {
			out = append(out, f.messages[i])
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	f := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) FilterUsersByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	var out []domain.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

type fakeMembership struct {
	mu      sync.Mutex
	online  map[string]map[string]time.Time // room → user → last seen
	failAll error
}

func newFakeMembership() *fakeMembership {
	return &fakeMembership{online: make(map[string]map[string]time.Time)}
}

func (f *fakeMembership) Add(_ context.Context, roomName, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	if f.online[roomName] == nil {
		f.online[roomName] = make(map[string]time.Time)
	}
	f.online[roomName][userID] = time.Now()
	return nil
}

func (f *fakeMembership) Remove(_ context.Context, roomName, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	delete(f.online[roomName], userID)
	return nil
}

func (f *fakeMembership) Contains(_ context.Context, roomName, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return false, f.failAll
	}
	_, ok := f.online[roomName][userID]
	return ok, nil
}

func (f *fakeMembership) Count(_ context.Context, roomName string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return 0, f.failAll
	}
	return len(f.online[roomName]), nil
}

func (f *fakeMembership) Members(_ context.Context, roomName string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	var out []string
	for id := range f.online[roomName] {
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeMembership) Touch(ctx context.Context, roomName, userID string) error {
	return f.Add(ctx, roomName, userID)
}

func (f *fakeMembership) PruneExpired(_ context.Context, roomName string, maxAge time.Duration) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := time.Now().Add(-maxAge)
	var removed []string
	for id, seen := range f.online[roomName] {
		if seen.Before(cutoff) {
			removed = append(removed, id)
			delete(f.online[roomName], id)
		}
	}
	return removed, nil
}

// fakeRenderer tags each fragment kind so tests can tell deliveries
// apart without parsing markup.
type fakeRenderer struct {
	mu           sync.Mutex
	countViews   []domain.OnlineCountView
	statusViews  []domain.OnlineStatusView
	messageViews []domain.MessageView
}

func (f *fakeRenderer) RenderMessage(view domain.MessageView) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messageViews = append(f.messageViews, view)
	return []byte("message:" + view.Message.ID.String() + ":viewer=" + view.Viewer.ID), nil
}

func (f *fakeRenderer) RenderOnlineCount(view domain.OnlineCountView) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countViews = append(f.countViews, view)
	return []byte("count:" + view.Room.Name), nil
}

func (f *fakeRenderer) RenderOnlineStatus(view domain.OnlineStatusView) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusViews = append(f.statusViews, view)
	return []byte("status:viewer=" + view.Viewer.ID), nil
}

func (f *fakeRenderer) lastCount() (domain.OnlineCountView, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.countViews) == 0 {
		return domain.OnlineCountView{}, false
	}
	return f.countViews[len(f.countViews)-1], true
}

func (f *fakeRenderer) statusViewFor(userID string) (domain.OnlineStatusView, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.statusViews) - 1; i >= 0; i-- {
		if f.statusViews[i].Viewer.ID == userID {
			return f.statusViews[i], true
		}
	}
	return domain.OnlineStatusView{}, false
}

type fakeClient struct {
	mu       sync.Mutex
	userID   string
	roomName string
	received [][]byte
	closed   bool
}

func newFakeClient(userID, roomName string) *fakeClient {
	return &fakeClient{userID: userID, roomName: roomName}
}

func (c *fakeClient) UserID() string   { return c.userID }
func (c *fakeClient) RoomName() string { return c.roomName }

func (c *fakeClient) Send(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrSessionClosed
	}
	c.received = append(c.received, data)
	return nil
}

func (c *fakeClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeClient) frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.received))
	copy(out, c.received)
	return out
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var errStoreDown = errors.New("connection refused")
