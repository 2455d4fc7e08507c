// Package conversations builds the per-user conversation list.
package conversations

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/ageniuscoder/pairchat/backend/internal/domain"
	"github.com/ageniuscoder/pairchat/backend/internal/users"
)

// LatestFinder returns the newest message between two users, or nil.
type LatestFinder interface {
	Latest(ctx context.Context, userA, userB string) (*domain.Message, error)
}

// Conversation pairs a peer id with the newest message exchanged with them.
// User carries the peer's directory entry for display.
type Conversation struct {
	Peer          string          `json:"peer"`
	User          users.User      `json:"user"`
	LatestMessage *domain.Message `json:"latestMessage"`
}

// Aggregator derives the sidebar on every call; nothing is cached.
type Aggregator struct {
	Users    users.Directory
	Messages LatestFinder
}

func NewAggregator(dir users.Directory, msgs LatestFinder) *Aggregator {
	return &Aggregator{Users: dir, Messages: msgs}
}

// List returns every other user, most recent conversation first. Users
// without messages rank as if their last message was at the epoch; ties
// order by peer id.
func (a *Aggregator) List(ctx context.Context, viewerID string) ([]Conversation, error) {
	if viewerID == "" {
		return nil, domain.Validationf("viewer is required")
	}
	all, err := a.Users.List(ctx)
	if err != nil {
		return nil, err
	}

	list := make([]Conversation, 0, len(all))
	for _, u := range all {
		if u.ID == viewerID {
			continue
		}
		latest, err := a.Messages.Latest(ctx, viewerID, u.ID)
		if err != nil {
			return nil, err
		}
		list = append(list, Conversation{Peer: u.ID, User: u, LatestMessage: latest})
	}

	slices.SortStableFunc(list, func(x, y Conversation) int {
		if c := sortKey(y).Compare(sortKey(x)); c != 0 {
			return c
		}
		return cmp.Compare(x.Peer, y.Peer)
	})
	return list, nil
}

func sortKey(c Conversation) time.Time {
	if c.LatestMessage == nil {
		return time.Unix(0, 0)
	}
	return c.LatestMessage.CreatedAt
}
