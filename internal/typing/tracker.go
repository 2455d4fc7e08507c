package typing

import (
	"sync"
	"time"

	"github.com/ageniuscoder/pairchat/backend/internal/domain"
	"go.uber.org/zap"
)

// DefaultTTL is how long a typing indicator lives without a refresh.
const DefaultTTL = 3 * time.Second

// Dispatcher receives typing transitions.
type Dispatcher interface {
	Dispatch(evt domain.Event)
}

type pair struct {
	from, to string
}

type session struct {
	expiresAt time.Time
	gen       uint64
	timer     *time.Timer
}

// Tracker owns the "is typing" state of every ordered user pair. Expiry is
// decided here, not by clients: each session carries a timer that emits
// TypingChanged{false} once unless the session is refreshed or cleared first.
type Tracker struct {
	// emitMu orders state changes with their events, so a timer that fired
	// just before a refresh cannot deliver its stop after the refresh's start.
	emitMu sync.Mutex

	mu       sync.Mutex
	sessions map[pair]*session
	gen      uint64
	closed   bool

	ttl      time.Duration
	dispatch Dispatcher
	log      *zap.Logger
	now      func() time.Time
}

func NewTracker(d Dispatcher, ttl time.Duration, log *zap.Logger) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{
		sessions: make(map[pair]*session),
		ttl:      ttl,
		dispatch: d,
		log:      log,
		now:      time.Now,
	}
}

// SetTyping creates or refreshes the session from -> to.
func (t *Tracker) SetTyping(from, to string) {
	if from == "" || to == "" || from == to {
		return
	}
	key := pair{from, to}

	t.emitMu.Lock()
	defer t.emitMu.Unlock()
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	if s, ok := t.sessions[key]; ok {
		s.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.sessions[key] = &session{
		expiresAt: t.now().Add(t.ttl),
		gen:       gen,
		timer:     time.AfterFunc(t.ttl, func() { t.expire(key, gen) }),
	}
	t.mu.Unlock()

	t.dispatch.Dispatch(domain.TypingChanged{FromUserID: from, ToUserID: to, IsTyping: true})
}

// ClearTyping ends the session from -> to and tells the peer.
func (t *Tracker) ClearTyping(from, to string) {
	if from == "" || to == "" || from == to {
		return
	}
	t.emitMu.Lock()
	defer t.emitMu.Unlock()
	t.mu.Lock()
	if s, ok := t.sessions[pair{from, to}]; ok {
		s.timer.Stop()
		delete(t.sessions, pair{from, to})
	}
	t.mu.Unlock()

	t.dispatch.Dispatch(domain.TypingChanged{FromUserID: from, ToUserID: to, IsTyping: false})
}

// ClearFrom ends every session owned by from, e.g. when its connection drops.
func (t *Tracker) ClearFrom(from string) {
	var peers []string
	t.emitMu.Lock()
	defer t.emitMu.Unlock()
	t.mu.Lock()
	for key, s := range t.sessions {
		if key.from == from {
			s.timer.Stop()
			delete(t.sessions, key)
			peers = append(peers, key.to)
		}
	}
	t.mu.Unlock()

	for _, to := range peers {
		t.dispatch.Dispatch(domain.TypingChanged{FromUserID: from, ToUserID: to, IsTyping: false})
	}
}

func (t *Tracker) IsTyping(from, to string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[pair{from, to}]
	return ok && t.now().Before(s.expiresAt)
}

// Close stops all timers without emitting.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, s := range t.sessions {
		s.timer.Stop()
		delete(t.sessions, key)
	}
	t.closed = true
}

func (t *Tracker) expire(key pair, gen uint64) {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()
	t.mu.Lock()
	s, ok := t.sessions[key]
	if !ok || s.gen != gen {
		// refreshed or cleared after this timer was armed
		t.mu.Unlock()
		return
	}
	delete(t.sessions, key)
	t.mu.Unlock()

	t.log.Debug("typing expired", zap.String("from", key.from), zap.String("to", key.to))
	t.dispatch.Dispatch(domain.TypingChanged{FromUserID: key.from, ToUserID: key.to, IsTyping: false})
}
