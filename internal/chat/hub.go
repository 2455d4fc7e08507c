package chat

import (
	"sync"

	"github.com/ageniuscoder/pairchat/backend/internal/domain"
	"github.com/ageniuscoder/pairchat/backend/internal/presence"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Sink is a live outbound channel to one connection.
type Sink interface {
	ID() string
	// Push enqueues a frame without blocking and reports whether it was accepted.
	Push(frame []byte) bool
	Close()
}

// Hub routes domain events to the sessions that should see them. Delivery is
// best effort and at most once: a recipient without a live session, or whose
// queue is full, simply misses the event and catches up on its next pull.
type Hub struct {
	Presence *presence.Registry

	log *zap.Logger

	mu    sync.RWMutex
	sinks map[string]Sink // connectionID -> sink
}

func NewHub(reg *presence.Registry, log *zap.Logger) *Hub {
	h := &Hub{
		Presence: reg,
		log:      log,
		sinks:    make(map[string]Sink),
	}
	reg.OnChange(func(online []string) {
		h.Dispatch(domain.PresenceChanged{Online: online})
	})
	return h
}

// Connect makes s the live session of userID. A session it supersedes is
// closed.
func (h *Hub) Connect(userID string, s Sink) {
	h.attach(s)
	prev, replaced := h.Presence.Register(userID, s.ID())
	if !replaced {
		return
	}
	if old := h.detach(prev.ConnectionID); old != nil {
		h.log.Info("superseded connection closed",
			zap.String("user", userID), zap.String("conn", prev.ConnectionID))
		old.Close()
	}
}

// Disconnect drops the sink and, if it is still the user's live session,
// takes the user offline. It reports whether presence changed.
func (h *Hub) Disconnect(userID, connectionID string) bool {
	ok := h.Presence.Unregister(userID, connectionID)
	h.detach(connectionID)
	return ok
}

// Dispatch delivers evt to its recipients. It never fails the caller.
func (h *Hub) Dispatch(evt domain.Event) {
	frame, err := domain.Encode(evt)
	if err != nil {
		h.log.Error("encode event", zap.String("event", evt.Name()), zap.Error(err))
		return
	}

	if _, ok := evt.(domain.PresenceChanged); ok {
		for _, c := range h.Presence.Connections() {
			h.push(evt, c.UserID, c.ConnectionID, frame)
		}
		return
	}

	for _, uid := range Recipients(evt) {
		connID, ok := h.Presence.Resolve(uid)
		if !ok {
			h.log.Debug("recipient offline, event dropped",
				zap.String("event", evt.Name()), zap.String("user", uid))
			continue
		}
		h.push(evt, uid, connID, frame)
	}
}

// Recipients applies the routing rule of each event kind. PresenceChanged
// returns nil because it goes to every connection.
func Recipients(evt domain.Event) []string {
	switch e := evt.(type) {
	case domain.MessageCreated:
		return []string{e.Message.ReceiverID}
	case domain.MessageDeletedForMe:
		return []string{e.RequesterID}
	case domain.MessageDeletedForEveryone:
		return lo.Uniq([]string{e.Message.SenderID, e.Message.ReceiverID})
	case domain.ChatCleared:
		return lo.Uniq([]string{e.ClearedBy, e.ClearedFor})
	case domain.TypingChanged:
		return []string{e.ToUserID}
	}
	return nil
}

func (h *Hub) push(evt domain.Event, userID, connID string, frame []byte) {
	h.mu.RLock()
	s, ok := h.sinks[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if !s.Push(frame) {
		h.log.Warn("outbound queue full, event dropped",
			zap.String("event", evt.Name()), zap.String("user", userID), zap.String("conn", connID))
	}
}

func (h *Hub) attach(s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinks[s.ID()] = s
}

func (h *Hub) detach(connID string) Sink {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.sinks[connID]
	delete(h.sinks, connID)
	return s
}
