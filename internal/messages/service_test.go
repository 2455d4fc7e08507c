package messages

import (
	"context"
	"testing"
	"time"

	"github.com/ageniuscoder/pairchat/backend/internal/domain"
	"github.com/ageniuscoder/pairchat/backend/internal/users"
	"github.com/samber/lo"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockDispatcher records dispatched events
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(evt domain.Event) {
	m.Called(evt)
}

func newTestService(t *testing.T) (*Service, *MockDispatcher, *fakeClock) {
	t.Helper()
	store, clock := newTestStore(t)
	hub := &MockDispatcher{}
	dir := users.NewStaticDirectory(users.User{ID: "A"}, users.User{ID: "B"}, users.User{ID: "C"})
	svc := NewService(store, dir, hub, zap.NewNop())
	svc.Now = clock.Now
	return svc, hub, clock
}

func TestService_SendDispatchesToReceiver(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc, hub, _ := newTestService(t)

	hub.On("Dispatch", mock.MatchedBy(func(e domain.MessageCreated) bool {
		return e.Message.SenderID == "A" && e.Message.ReceiverID == "B" && *e.Message.Text == "hi"
	})).Once()

	m, err := svc.Send(ctx, "A", "B", lo.ToPtr("hi"), nil)
	req.NoError(err)
	req.NotZero(m.ID)
	hub.AssertExpectations(t)
}

func TestService_SendFailuresDoNotDispatch(t *testing.T) {
	ctx := context.Background()
	svc, hub, _ := newTestService(t)

	_, err := svc.Send(ctx, "A", "A", lo.ToPtr("hi"), nil)
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Send(ctx, "A", "B", lo.ToPtr(" "), nil)
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Send(ctx, "A", "ghost", lo.ToPtr("hi"), nil)
	require.ErrorIs(t, err, domain.ErrNotFound)

	hub.AssertNotCalled(t, "Dispatch", mock.Anything)
}

func TestService_ListHidesOwnDeletions(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc, hub, _ := newTestService(t)
	hub.On("Dispatch", mock.Anything)

	first, err := svc.Send(ctx, "A", "B", lo.ToPtr("one"), nil)
	req.NoError(err)
	_, err = svc.Send(ctx, "B", "A", lo.ToPtr("two"), nil)
	req.NoError(err)

	_, err = svc.DeleteForMe(ctx, first.ID, "B")
	req.NoError(err)

	forB, err := svc.List(ctx, "B", "A")
	req.NoError(err)
	req.Len(forB, 1)
	req.Equal("two", *forB[0].Text)

	forA, err := svc.List(ctx, "A", "B")
	req.NoError(err)
	req.Len(forA, 2)
}

func TestService_DeleteForMeNotifiesRequesterOnly(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc, hub, _ := newTestService(t)

	hub.On("Dispatch", mock.AnythingOfType("domain.MessageCreated")).Once()
	m, err := svc.Send(ctx, "A", "B", lo.ToPtr("hi"), nil)
	req.NoError(err)

	hub.On("Dispatch", mock.MatchedBy(func(e domain.MessageDeletedForMe) bool {
		return e.RequesterID == "B" && e.Message.ID == m.ID && e.Message.HiddenFor("B")
	})).Once()

	_, err = svc.DeleteForMe(ctx, m.ID, "B")
	req.NoError(err)
	hub.AssertExpectations(t)
}

func TestService_DeleteForEveryoneRespectsWindow(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc, hub, clock := newTestService(t)

	hub.On("Dispatch", mock.AnythingOfType("domain.MessageCreated"))
	early, err := svc.Send(ctx, "A", "B", lo.ToPtr("oops"), nil)
	req.NoError(err)
	late, err := svc.Send(ctx, "A", "B", lo.ToPtr("too late"), nil)
	req.NoError(err)

	hub.On("Dispatch", mock.MatchedBy(func(e domain.MessageDeletedForEveryone) bool {
		return e.Message.ID == early.ID && *e.Message.Text == domain.DeletedPlaceholder
	})).Once()

	clock.Advance(6 * time.Minute)
	got, err := svc.DeleteForEveryone(ctx, early.ID, "A")
	req.NoError(err)
	req.True(got.DeletedForEveryone)

	_, err = svc.DeleteForEveryone(ctx, late.ID, "B")
	req.ErrorIs(err, domain.ErrPermissionDenied)

	clock.Advance(2 * time.Minute)
	_, err = svc.DeleteForEveryone(ctx, late.ID, "A")
	req.ErrorIs(err, domain.ErrExpired)

	hub.AssertExpectations(t)
	hub.AssertNumberOfCalls(t, "Dispatch", 3)
}

func TestService_ClearChat(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc, hub, _ := newTestService(t)

	hub.On("Dispatch", mock.AnythingOfType("domain.MessageCreated"))
	_, err := svc.Send(ctx, "A", "B", lo.ToPtr("1"), nil)
	req.NoError(err)
	_, err = svc.Send(ctx, "C", "A", lo.ToPtr("2"), nil)
	req.NoError(err)

	hub.On("Dispatch", domain.ChatCleared{ClearedBy: "B", ClearedFor: "A"}).Once()

	n, err := svc.ClearChat(ctx, "B", "A")
	req.NoError(err)
	req.EqualValues(1, n)

	left, err := svc.List(ctx, "A", "C")
	req.NoError(err)
	req.Len(left, 1)

	_, err = svc.ClearChat(ctx, "A", "A")
	req.ErrorIs(err, domain.ErrValidation)
	_, err = svc.ClearChat(ctx, "A", "ghost")
	req.ErrorIs(err, domain.ErrNotFound)

	hub.AssertExpectations(t)
}
