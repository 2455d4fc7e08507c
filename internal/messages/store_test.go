package messages

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ageniuscoder/pairchat/backend/internal/domain"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock hands out a fixed time that tests move forward by hand.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func appendText(t *testing.T, s Store, from, to, text string) domain.Message {
	t.Helper()
	m, err := s.Append(context.Background(), from, to, lo.ToPtr(text), nil)
	require.NoError(t, err)
	return m
}

type storeFactory func(t *testing.T) (Store, *fakeClock)

// runStoreContract checks the behaviour every Store backend shares.
func runStoreContract(t *testing.T, newStore storeFactory) {
	t.Run("append and query order", func(t *testing.T) { storeAppendAndQueryOrder(t, newStore) })
	t.Run("append validation", func(t *testing.T) { storeAppendValidation(t, newStore) })
	t.Run("created at never goes backwards", func(t *testing.T) { storeCreatedAtMonotonic(t, newStore) })
	t.Run("concurrent appends keep order", func(t *testing.T) { storeConcurrentAppends(t, newStore) })
	t.Run("soft delete for viewer", func(t *testing.T) { storeSoftDelete(t, newStore) })
	t.Run("tombstone window", func(t *testing.T) { storeTombstoneWindow(t, newStore) })
	t.Run("clear between", func(t *testing.T) { storeClearBetween(t, newStore) })
}

func storeAppendAndQueryOrder(t *testing.T, newStore storeFactory) {
	req := require.New(t)
	ctx := context.Background()
	s, clock := newStore(t)

	hi := appendText(t, s, "A", "B", "hi")
	clock.Advance(time.Second)
	bye := appendText(t, s, "B", "A", "bye")

	req.Greater(bye.ID, hi.ID)
	req.Equal([]string{}, hi.DeletedFor)

	for _, pair := range [][2]string{{"A", "B"}, {"B", "A"}} {
		msgs, err := s.Query(ctx, pair[0], pair[1], pair[0])
		req.NoError(err)
		req.Len(msgs, 2)
		req.Equal("hi", *msgs[0].Text)
		req.Equal("bye", *msgs[1].Text)
		req.Equal(hi.CreatedAt, msgs[0].CreatedAt)
	}

	latest, err := s.Latest(ctx, "B", "A")
	req.NoError(err)
	req.Equal(bye.ID, latest.ID)

	none, err := s.Latest(ctx, "A", "Z")
	req.NoError(err)
	req.Nil(none)
}

func storeAppendValidation(t *testing.T, newStore storeFactory) {
	ctx := context.Background()
	s, _ := newStore(t)

	cases := []struct {
		name        string
		from, to    string
		text, image *string
	}{
		{"self send", "A", "A", lo.ToPtr("hi"), nil},
		{"no content", "A", "B", nil, nil},
		{"blank content", "A", "B", lo.ToPtr("  "), lo.ToPtr("")},
		{"missing receiver", "A", "", lo.ToPtr("hi"), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Append(ctx, tc.from, tc.to, tc.text, tc.image)
			require.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	img, err := s.Append(ctx, "A", "B", lo.ToPtr(" "), lo.ToPtr("https://img/1.png"))
	require.NoError(t, err)
	assert.Nil(t, img.Text)
	assert.Equal(t, "https://img/1.png", *img.Image)
}

func storeCreatedAtMonotonic(t *testing.T, newStore storeFactory) {
	req := require.New(t)
	s, clock := newStore(t)

	first := appendText(t, s, "A", "B", "one")
	clock.Advance(-time.Minute)
	second := appendText(t, s, "A", "B", "two")

	req.Greater(second.ID, first.ID)
	req.False(second.CreatedAt.Before(first.CreatedAt))
}

func storeConcurrentAppends(t *testing.T, newStore storeFactory) {
	req := require.New(t)
	ctx := context.Background()
	s, clock := newStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := "A", "B"
			if i%2 == 1 {
				from, to = to, from
				clock.Advance(time.Millisecond)
			}
			_, err := s.Append(ctx, from, to, lo.ToPtr("x"), nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	msgs, err := s.Query(ctx, "A", "B", "A")
	req.NoError(err)
	req.Len(msgs, 20)
	for i := 1; i < len(msgs); i++ {
		req.Greater(msgs[i].ID, msgs[i-1].ID)
		req.False(msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt))
	}
}

func storeSoftDelete(t *testing.T, newStore storeFactory) {
	req := require.New(t)
	ctx := context.Background()
	s, _ := newStore(t)

	m := appendText(t, s, "A", "B", "hi")

	got, err := s.SoftDeleteForViewer(ctx, m.ID, "B")
	req.NoError(err)
	req.Equal([]string{"B"}, got.DeletedFor)

	got, err = s.SoftDeleteForViewer(ctx, m.ID, "B")
	req.NoError(err)
	req.Equal([]string{"B"}, got.DeletedFor)

	got, err = s.SoftDeleteForViewer(ctx, m.ID, "A")
	req.NoError(err)
	req.ElementsMatch([]string{"A", "B"}, got.DeletedFor)

	_, err = s.SoftDeleteForViewer(ctx, m.ID, "C")
	req.ErrorIs(err, domain.ErrPermissionDenied)

	_, err = s.SoftDeleteForViewer(ctx, 9999, "A")
	req.ErrorIs(err, domain.ErrNotFound)

	// hiding leaves the message in the raw history
	msgs, err := s.Query(ctx, "A", "B", "B")
	req.NoError(err)
	req.Len(msgs, 1)
	req.ElementsMatch([]string{"A", "B"}, msgs[0].DeletedFor)
	req.Empty(domain.VisibleTo(msgs, "B"))
}

func storeTombstoneWindow(t *testing.T, newStore storeFactory) {
	ctx := context.Background()
	s, _ := newStore(t)

	t.Run("within window", func(t *testing.T) {
		req := require.New(t)
		m, err := s.Append(ctx, "A", "B", lo.ToPtr("secret"), lo.ToPtr("https://img/2.png"))
		req.NoError(err)

		got, err := s.Tombstone(ctx, m.ID, "A", m.CreatedAt.Add(6*time.Minute+59*time.Second))
		req.NoError(err)
		req.True(got.DeletedForEveryone)
		req.Equal(domain.DeletedPlaceholder, *got.Text)
		req.Nil(got.Image)

		stored, err := s.Get(ctx, m.ID)
		req.NoError(err)
		req.True(stored.DeletedForEveryone)
		req.Equal(domain.DeletedPlaceholder, *stored.Text)
		req.Nil(stored.Image)

		// repeating is harmless
		_, err = s.Tombstone(ctx, m.ID, "A", m.CreatedAt.Add(time.Minute))
		req.NoError(err)
	})

	t.Run("after window", func(t *testing.T) {
		m := appendText(t, s, "A", "B", "late")
		_, err := s.Tombstone(ctx, m.ID, "A", m.CreatedAt.Add(7*time.Minute+time.Second))
		require.ErrorIs(t, err, domain.ErrExpired)

		stored, err := s.Get(ctx, m.ID)
		require.NoError(t, err)
		require.False(t, stored.DeletedForEveryone)
		require.Equal(t, "late", *stored.Text)
	})

	t.Run("not the sender", func(t *testing.T) {
		m := appendText(t, s, "A", "B", "mine")
		_, err := s.Tombstone(ctx, m.ID, "B", m.CreatedAt)
		require.ErrorIs(t, err, domain.ErrPermissionDenied)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := s.Tombstone(ctx, 424242, "A", time.Now())
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func storeClearBetween(t *testing.T, newStore storeFactory) {
	req := require.New(t)
	ctx := context.Background()
	s, _ := newStore(t)

	ab := appendText(t, s, "A", "B", "1")
	appendText(t, s, "B", "A", "2")
	ac := appendText(t, s, "A", "C", "3")
	_, err := s.SoftDeleteForViewer(ctx, ab.ID, "A")
	req.NoError(err)

	n, err := s.ClearBetween(ctx, "B", "A")
	req.NoError(err)
	req.EqualValues(2, n)

	msgs, err := s.Query(ctx, "A", "B", "A")
	req.NoError(err)
	req.Empty(msgs)

	msgs, err = s.Query(ctx, "A", "C", "A")
	req.NoError(err)
	req.Len(msgs, 1)
	req.Equal(ac.ID, msgs[0].ID)

	_, err = s.Get(ctx, ab.ID)
	req.ErrorIs(err, domain.ErrNotFound)

	n, err = s.ClearBetween(ctx, "A", "B")
	req.NoError(err)
	req.Zero(n)
}
