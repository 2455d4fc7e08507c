package presence

import (
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Connection is the single live session recorded for a user.
type Connection struct {
	UserID       string
	ConnectionID string
	ConnectedAt  time.Time
}

// Registry maps each user to at most one reachable connection.
//
// Every successful Register or Unregister invokes the OnChange listener once
// with the sorted set of online users. Listener calls are serialized in the
// order the transitions happened. A listener may read the Registry but must
// not call Register or Unregister.
type Registry struct {
	emitMu sync.Mutex

	mu       sync.RWMutex
	entries  map[string]Connection
	listener func(online []string)
	now      func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Connection),
		now:     time.Now,
	}
}

// OnChange sets the presence snapshot listener.
func (r *Registry) OnChange(fn func(online []string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener = fn
}

// Register records connectionID as the live session of userID, superseding
// any earlier one. The superseded connection is returned so the caller can
// close it.
func (r *Registry) Register(userID, connectionID string) (prev Connection, replaced bool) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	prev, replaced = r.entries[userID]
	r.entries[userID] = Connection{UserID: userID, ConnectionID: connectionID, ConnectedAt: r.now()}
	snapshot, fn := r.snapshotLocked(), r.listener
	r.mu.Unlock()

	if replaced && prev.ConnectionID == connectionID {
		replaced = false
	}
	if fn != nil {
		fn(snapshot)
	}
	return prev, replaced
}

// Unregister removes userID only while connectionID is still the recorded
// session; a late disconnect of a superseded connection is ignored.
func (r *Registry) Unregister(userID, connectionID string) bool {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	cur, ok := r.entries[userID]
	if !ok || cur.ConnectionID != connectionID {
		r.mu.Unlock()
		return false
	}
	delete(r.entries, userID)
	snapshot, fn := r.snapshotLocked(), r.listener
	r.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
	return true
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[userID]
	return ok
}

// Resolve returns the connection id currently serving userID.
func (r *Registry) Resolve(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.entries[userID]
	return c.ConnectionID, ok
}

// Online returns the sorted ids of every online user.
func (r *Registry) Online() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// Connections returns every live entry ordered by user id.
func (r *Registry) Connections() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := lo.Values(r.entries)
	sort.Slice(conns, func(i, j int) bool { return conns[i].UserID < conns[j].UserID })
	return conns
}

func (r *Registry) snapshotLocked() []string {
	ids := lo.Keys(r.entries)
	sort.Strings(ids)
	return ids
}
