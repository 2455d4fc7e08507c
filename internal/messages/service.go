package messages

import (
	"context"
	"time"

	"github.com/ageniuscoder/pairchat/backend/internal/domain"
	"github.com/ageniuscoder/pairchat/backend/internal/users"
	"go.uber.org/zap"
)

// Dispatcher delivers events to live sessions.
type Dispatcher interface {
	Dispatch(evt domain.Event)
}

// Service applies a store mutation and then notifies whoever should see it.
// A failed write never dispatches; dispatch never fails a write.
type Service struct {
	Store Store
	Users users.Directory
	Hub   Dispatcher
	Log   *zap.Logger
	Now   func() time.Time
}

func NewService(store Store, dir users.Directory, hub Dispatcher, log *zap.Logger) *Service {
	return &Service{
		Store: store,
		Users: dir,
		Hub:   hub,
		Log:   log,
		Now:   time.Now,
	}
}

func (s *Service) Send(ctx context.Context, senderID, receiverID string, text, image *string) (domain.Message, error) {
	if err := domain.ValidateNew(senderID, receiverID, text, image); err != nil {
		return domain.Message{}, err
	}
	if err := s.requireUser(ctx, receiverID); err != nil {
		return domain.Message{}, err
	}
	m, err := s.Store.Append(ctx, senderID, receiverID, text, image)
	if err != nil {
		return domain.Message{}, err
	}
	s.Log.Debug("message stored", zap.Int64("id", m.ID), zap.String("from", senderID), zap.String("to", receiverID))
	s.Hub.Dispatch(domain.MessageCreated{Message: m})
	return m, nil
}

// List returns the pair's history as viewerID sees it.
func (s *Service) List(ctx context.Context, viewerID, peerID string) ([]domain.Message, error) {
	if viewerID == "" || peerID == "" {
		return nil, domain.Validationf("viewer and peer are required")
	}
	msgs, err := s.Store.Query(ctx, viewerID, peerID, viewerID)
	if err != nil {
		return nil, err
	}
	return domain.VisibleTo(msgs, viewerID), nil
}

func (s *Service) DeleteForMe(ctx context.Context, messageID int64, viewerID string) (domain.Message, error) {
	m, err := s.Store.SoftDeleteForViewer(ctx, messageID, viewerID)
	if err != nil {
		return domain.Message{}, err
	}
	s.Hub.Dispatch(domain.MessageDeletedForMe{Message: m, RequesterID: viewerID})
	return m, nil
}

func (s *Service) DeleteForEveryone(ctx context.Context, messageID int64, requesterID string) (domain.Message, error) {
	m, err := s.Store.Tombstone(ctx, messageID, requesterID, s.Now())
	if err != nil {
		return domain.Message{}, err
	}
	s.Hub.Dispatch(domain.MessageDeletedForEveryone{Message: m})
	return m, nil
}

// ClearChat wipes the pair's history for both sides and reports how many
// messages were removed.
func (s *Service) ClearChat(ctx context.Context, requesterID, peerID string) (int64, error) {
	switch {
	case requesterID == "" || peerID == "":
		return 0, domain.Validationf("requester and peer are required")
	case requesterID == peerID:
		return 0, domain.Validationf("cannot clear a chat with yourself")
	}
	if err := s.requireUser(ctx, peerID); err != nil {
		return 0, err
	}
	n, err := s.Store.ClearBetween(ctx, requesterID, peerID)
	if err != nil {
		return 0, err
	}
	s.Log.Info("chat cleared", zap.String("by", requesterID), zap.String("with", peerID), zap.Int64("deleted", n))
	s.Hub.Dispatch(domain.ChatCleared{ClearedBy: requesterID, ClearedFor: peerID})
	return n, nil
}

func (s *Service) requireUser(ctx context.Context, id string) error {
	if s.Users == nil {
		return nil
	}
	ok, err := s.Users.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFoundf("user %s not found", id)
	}
	return nil
}
