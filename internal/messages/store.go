package messages

import (
	"context"
	"time"

	"github.com/ageniuscoder/pairchat/backend/internal/domain"
)

// Store persists direct messages and owns their deletion rules. Messages
// are only ever mutated through SoftDeleteForViewer, Tombstone and
// ClearBetween.
type Store interface {
	// Append validates and persists a new message, assigning its id and
	// creation time atomically.
	Append(ctx context.Context, senderID, receiverID string, text, image *string) (domain.Message, error)
	Get(ctx context.Context, id int64) (domain.Message, error)
	// Query returns every message between the pair in creation order. No
	// per-viewer hiding is applied; see domain.VisibleTo.
	Query(ctx context.Context, userA, userB, viewerID string) ([]domain.Message, error)
	// Latest returns the newest message between the pair, or nil.
	Latest(ctx context.Context, userA, userB string) (*domain.Message, error)
	SoftDeleteForViewer(ctx context.Context, id int64, viewerID string) (domain.Message, error)
	Tombstone(ctx context.Context, id int64, requesterID string, now time.Time) (domain.Message, error)
	// ClearBetween permanently removes the pair's history for both sides.
	ClearBetween(ctx context.Context, userA, userB string) (int64, error)
	Ping(ctx context.Context) error
}

// checkTombstone applies the delete-for-everyone rules to a loaded message.
func checkTombstone(m domain.Message, requesterID string, now time.Time, window time.Duration) error {
	if m.SenderID != requesterID {
		return domain.PermissionDeniedf("only the sender can delete message %d for everyone", m.ID)
	}
	if now.Sub(m.CreatedAt) > window {
		return domain.Expiredf("message %d can no longer be deleted for everyone", m.ID)
	}
	return nil
}

func checkViewer(m domain.Message, viewerID string) error {
	if !m.Involves(viewerID) {
		return domain.PermissionDeniedf("message %d is not in your conversations", m.ID)
	}
	return nil
}

// monotonic returns a creation time that never precedes last.
func monotonic(now, last time.Time) time.Time {
	at := time.Unix(0, now.UnixNano()).UTC()
	if at.Before(last) {
		return last
	}
	return at
}
