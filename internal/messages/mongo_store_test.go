package messages

import (
	"context"
	"testing"
	"time"

	"github.com/ageniuscoder/pairchat/backend/internal/storage/mongodb/mongotest"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestMessageDoc_ToMessage(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)
	doc := messageDoc{
		ID:         7,
		SenderID:   "A",
		ReceiverID: "B",
		Text:       lo.ToPtr("hi"),
		CreatedAt:  at.UnixNano(),
	}

	m := doc.toMessage()
	assert.Equal(t, int64(7), m.ID)
	assert.Equal(t, at, m.CreatedAt)
	assert.Equal(t, []string{}, m.DeletedFor)
	assert.Nil(t, m.Image)
}

func TestPairFilter_MatchesBothDirections(t *testing.T) {
	f := pairFilter("A", "B")
	or, ok := f["$or"].(bson.A)
	assert.True(t, ok)
	assert.Equal(t, bson.A{
		bson.M{"sender_id": "A", "receiver_id": "B"},
		bson.M{"sender_id": "B", "receiver_id": "A"},
	}, or)
}

func newTestMongoStore(t *testing.T) (*MongoStore, *fakeClock) {
	t.Helper()
	db := mongotest.Database(t)
	clock := newFakeClock()
	s := NewMongoStore(db).WithClock(clock.Now)
	require.NoError(t, s.EnsureIndexes(context.Background()))
	return s, clock
}

func TestMongoStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) (Store, *fakeClock) {
		return newTestMongoStore(t)
	})
}

func TestMongoStore_IDsContinueAfterRestart(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s, clock := newTestMongoStore(t)

	first := appendText(t, s, "A", "B", "before")

	// a second store on the same database picks up the counter and clock
	reopened := NewMongoStore(s.coll.Database()).WithClock(func() time.Time {
		return clock.Now().Add(-time.Hour)
	})
	second, err := reopened.Append(ctx, "B", "A", lo.ToPtr("after"), nil)
	req.NoError(err)
	req.Greater(second.ID, first.ID)
	req.False(second.CreatedAt.Before(first.CreatedAt))
	req.NoError(reopened.Ping(ctx))
}
