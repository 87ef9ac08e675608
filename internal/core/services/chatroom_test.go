package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Ashika2003/Chat-App/internal/app/registry"
	"github.com/Ashika2003/Chat-App/internal/core/domain"

	"github.com/stretchr/testify/require"
)

type chatroomFixture struct {
	svc        *ChatroomService
	rooms      *fakeRoomRepo
	messages   *fakeMessageRepo
	users      *fakeUserRepo
	membership *fakeMembership
	renderer   *fakeRenderer
	hub        *registry.Registry
}

func newChatroomFixture(t *testing.T) *chatroomFixture {
	t.Helper()
	rooms := newFakeRoomRepo()
	rooms.addRoom(&domain.Room{Name: "general", CreatedAt: time.Now()})
	users := newFakeUserRepo(
		&domain.User{ID: "alice", Username: "alice"},
		&domain.User{ID: "bob", Username: "bob"},
	)
	messages := &fakeMessageRepo{}
	membership := newFakeMembership()
	renderer := &fakeRenderer{}
	hub := registry.NewRegistry()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewChatroomService(log, rooms, messages, users, membership, hub, renderer, passthroughTx{}, time.Minute)
	return &chatroomFixture{
		svc:        svc,
		rooms:      rooms,
		messages:   messages,
		users:      users,
		membership: membership,
		renderer:   renderer,
		hub:        hub,
	}
}

func TestChatroomConnect_UnknownRoomRejected(t *testing.T) {
	req := require.New(t)
	fx := newChatroomFixture(t)
	ctx := context.Background()

	client := newFakeClient("alice", "nowhere")
	_, err := fx.svc.Connect(ctx, client)
	req.ErrorIs(err, domain.ErrRoomNotFound)

	// Nothing was registered or recorded online.
	req.Empty(fx.hub.Snapshot("nowhere"))
	count, err := fx.membership.Count(ctx, "nowhere")
	req.NoError(err)
	req.Zero(count)
}

func TestChatroomOnlineCountScenario(t *testing.T) {
	req := require.New(t)
	fx := newChatroomFixture(t)
	ctx := context.Background()

	// A connects: the broadcast shows count 0 (only A online).
	a := newFakeClient("alice", "general")
	sessionA, err := fx.svc.Connect(ctx, a)
	req.NoError(err)
	view, ok := fx.renderer.lastCount()
	req.True(ok)
	req.Equal(0, view.Count)
	req.Len(a.frames(), 1)

	// B connects: both see count 1.
	b := newFakeClient("bob", "general")
	_, err = fx.svc.Connect(ctx, b)
	req.NoError(err)
	view, ok = fx.renderer.lastCount()
	req.True(ok)
	req.Equal(1, view.Count)
	req.Len(a.frames(), 2)
	req.Len(b.frames(), 1)

	// A sends a message: both receive one message fragment each.
	err = fx.svc.Receive(ctx, sessionA, []byte(`{"body":"hi"}`))
	req.NoError(err)
	framesA, framesB := a.frames(), b.frames()
	req.Len(framesA, 3)
	req.Len(framesB, 2)
	req.True(strings.HasPrefix(string(framesA[2]), "message:"))
	req.True(strings.HasPrefix(string(framesB[1]), "message:"))
	// Each fragment is rendered for its own recipient.
	req.Contains(string(framesA[2]), "viewer=alice")
	req.Contains(string(framesB[1]), "viewer=bob")

	// B disconnects: count drops back to 0.
	err = fx.svc.Disconnect(ctx, b)
	req.NoError(err)
	view, ok = fx.renderer.lastCount()
	req.True(ok)
	req.Equal(0, view.Count)

	online, err := fx.membership.Contains(ctx, "general", "bob")
	req.NoError(err)
	req.False(online)
}

func TestChatroomSecondTabDoesNotDoubleCount(t *testing.T) {
	req := require.New(t)
	fx := newChatroomFixture(t)
	ctx := context.Background()

	tab1 := newFakeClient("alice", "general")
	tab2 := newFakeClient("alice", "general")
	_, err := fx.svc.Connect(ctx, tab1)
	req.NoError(err)
	_, err = fx.svc.Connect(ctx, tab2)
	req.NoError(err)

	count, err := fx.membership.Count(ctx, "general")
	req.NoError(err)
	req.Equal(1, count)
	// Only the first tab's join rebroadcast the count.
	req.Len(fx.renderer.countViews, 1)

	// Closing one tab keeps alice online; closing the last removes her.
	req.NoError(fx.svc.Disconnect(ctx, tab1))
	online, err := fx.membership.Contains(ctx, "general", "alice")
	req.NoError(err)
	req.True(online)

	req.NoError(fx.svc.Disconnect(ctx, tab2))
	online, err = fx.membership.Contains(ctx, "general", "alice")
	req.NoError(err)
	req.False(online)
}

func TestChatroomDisconnectWithoutConnectIsNoOp(t *testing.T) {
	req := require.New(t)
	fx := newChatroomFixture(t)
	ctx := context.Background()

	stranger := newFakeClient("bob", "general")
	req.NoError(fx.svc.Disconnect(ctx, stranger))
	req.Empty(fx.renderer.countViews)
	count, err := fx.membership.Count(ctx, "general")
	req.NoError(err)
	req.Zero(count)
}

func TestChatroomReceiveFansOutToEachSubscriberOnce(t *testing.T) {
	req := require.New(t)
	fx := newChatroomFixture(t)
	ctx := context.Background()
	fx.users.users["carol"] = &domain.User{ID: "carol", Username: "carol"}

	clients := []*fakeClient{
		newFakeClient("alice", "general"),
		newFakeClient("bob", "general"),
		newFakeClient("carol", "general"),
	}
	var sessionA *domain.Session
	for i, c := range clients {
		session, err := fx.svc.Connect(ctx, c)
		req.NoError(err)
		if i == 0 {
			sessionA = session
		}
	}

	before := make([]int, len(clients))
	for i, c := range clients {
		before[i] = len(c.frames())
	}
	req.NoError(fx.svc.Receive(ctx, sessionA, []byte(`{"body":"hello everyone"}`)))
	for i, c := range clients {
		frames := c.frames()
		req.Len(frames, before[i]+1, "client %d", i)
		req.True(strings.HasPrefix(string(frames[len(frames)-1]), "message:"))
	}
}

func TestChatroomReceiveInvalidPayload(t *testing.T) {
	req := require.New(t)
	fx := newChatroomFixture(t)
	ctx := context.Background()

	a := newFakeClient("alice", "general")
	session, err := fx.svc.Connect(ctx, a)
	req.NoError(err)
	framesBefore := len(a.frames())

	for _, raw := range [][]byte{
		[]byte(`{"nope":"hi"}`),
		[]byte(`not json`),
		[]byte(`{"body":42}`),
		[]byte(`{"body":null}`),
	} {
		err := fx.svc.Receive(ctx, session, raw)
		req.ErrorIs(err, domain.ErrInvalidPayload, "payload %q", raw)
	}
	req.Empty(fx.messages.messages)
	req.Len(a.frames(), framesBefore)

	// An empty body is not malformed; it persists like any other message.
	req.NoError(fx.svc.Receive(ctx, session, []byte(`{"body":""}`)))
	req.Len(fx.messages.messages, 1)
	req.Equal("", fx.messages.messages[0].Body)
}

func TestChatroomReceiveStoreFailureAbortsBroadcast(t *testing.T) {
	req := require.New(t)
	fx := newChatroomFixture(t)
	ctx := context.Background()

	a := newFakeClient("alice", "general")
	session, err := fx.svc.Connect(ctx, a)
	req.NoError(err)
	framesBefore := len(a.frames())

	fx.messages.failCreate = errStoreDown
	err = fx.svc.Receive(ctx, session, []byte(`{"body":"lost"}`))
	req.ErrorIs(err, domain.ErrStoreUnavailable)
	req.Len(a.frames(), framesBefore)
	req.Empty(fx.renderer.messageViews)
}

func TestChatroomMessageRoundTrip(t *testing.T) {
	req := require.New(t)
	fx := newChatroomFixture(t)
	ctx := context.Background()

	a := newFakeClient("alice", "general")
	session, err := fx.svc.Connect(ctx, a)
	req.NoError(err)
	req.NoError(fx.svc.Receive(ctx, session, []byte(`{"body":"for the record"}`)))

	req.Len(fx.messages.messages, 1)
	stored := fx.messages.messages[0]
	fetched, err := fx.messages.GetMessageByID(ctx, stored.ID)
	req.NoError(err)
	req.Equal("for the record", fetched.Body)
	req.Equal("alice", fetched.AuthorID)
	req.Equal("general", fetched.RoomName)
}

func TestChatroomRosterCarriesRecentAuthors(t *testing.T) {
	req := require.New(t)
	fx := newChatroomFixture(t)
	ctx := context.Background()

	a := newFakeClient("alice", "general")
	sessionA, err := fx.svc.Connect(ctx, a)
	req.NoError(err)
	req.NoError(fx.svc.Receive(ctx, sessionA, []byte(`{"body":"first"}`)))

	// The next presence recount includes alice in the author roster.
	b := newFakeClient("bob", "general")
	_, err = fx.svc.Connect(ctx, b)
	req.NoError(err)
	view, ok := fx.renderer.lastCount()
	req.True(ok)
	req.Len(view.Authors, 1)
	req.Equal("alice", view.Authors[0].ID)
}

func TestChatroomConnectMembershipFailureRejects(t *testing.T) {
	req := require.New(t)
	fx := newChatroomFixture(t)
	ctx := context.Background()

	fx.membership.failAll = errStoreDown
	a := newFakeClient("alice", "general")
	_, err := fx.svc.Connect(ctx, a)
	req.ErrorIs(err, domain.ErrStoreUnavailable)
	// The failed connect did not leave a registry entry behind.
	req.Empty(fx.hub.Snapshot("general"))
}

func TestChatroomErrorsAreLocalToTheConnection(t *testing.T) {
	req := require.New(t)
	fx := newChatroomFixture(t)
	ctx := context.Background()

	a := newFakeClient("alice", "general")
	b := newFakeClient("bob", "general")
	sessionA, err := fx.svc.Connect(ctx, a)
	req.NoError(err)
	_, err = fx.svc.Connect(ctx, b)
	req.NoError(err)

	// A's malformed receive does not disturb B's membership or delivery.
	req.Error(fx.svc.Receive(ctx, sessionA, []byte(`garbage`)))
	req.NoError(fx.svc.Receive(ctx, sessionA, []byte(`{"body":"still here"}`)))
	frames := b.frames()
	req.True(strings.HasPrefix(string(frames[len(frames)-1]), "message:"))
}

func TestChatroomStoreErrorsWrapSentinel(t *testing.T) {
	req := require.New(t)
	fx := newChatroomFixture(t)
	ctx := context.Background()

	fx.messages.failCreate = errStoreDown
	a := newFakeClient("alice", "general")
	session, err := fx.svc.Connect(ctx, a)
	req.NoError(err)
	err = fx.svc.Receive(ctx, session, []byte(`{"body":"x"}`))
	req.True(errors.Is(err, domain.ErrStoreUnavailable))
}
