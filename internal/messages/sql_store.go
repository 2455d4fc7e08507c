package messages

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/ageniuscoder/pairchat/backend/internal/domain"
	"github.com/ageniuscoder/pairchat/backend/internal/storage"
	"github.com/samber/lo"
)

const messageCols = `id, sender_id, receiver_id, text, image, created_at, deleted_for_everyone`

const pairCond = `((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))`

// SQLStore implements Store over database/sql for sqlite and postgres.
type SQLStore struct {
	db      *sql.DB
	dialect storage.Dialect
	now     func() time.Time
	window  time.Duration

	// appendMu makes id and created_at assignment one step so ids and
	// timestamps sort identically.
	appendMu sync.Mutex
	last     time.Time
	loaded   bool
}

func NewSQLStore(db *sql.DB, dialect storage.Dialect) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: dialect,
		now:     time.Now,
		window:  domain.TombstoneWindow,
	}
}

// WithClock replaces the clock used to stamp new messages.
func (s *SQLStore) WithClock(now func() time.Time) *SQLStore {
	s.now = now
	return s
}

// WithTombstoneWindow overrides the delete-for-everyone window.
func (s *SQLStore) WithTombstoneWindow(d time.Duration) *SQLStore {
	if d > 0 {
		s.window = d
	}
	return s
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Append(ctx context.Context, senderID, receiverID string, text, image *string) (domain.Message, error) {
	if err := domain.ValidateNew(senderID, receiverID, text, image); err != nil {
		return domain.Message{}, err
	}
	text, image = domain.NormalizeContent(text), domain.NormalizeContent(image)

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	if !s.loaded {
		var newest sql.NullInt64
		if err := s.db.QueryRowContext(ctx, `SELECT MAX(created_at) FROM messages`).Scan(&newest); err != nil {
			return domain.Message{}, domain.Storage("load last timestamp", err)
		}
		if newest.Valid {
			s.last = time.Unix(0, newest.Int64).UTC()
		}
		s.loaded = true
	}
	at := monotonic(s.now(), s.last)

	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(
		`INSERT INTO messages (sender_id, receiver_id, text, image, created_at, deleted_for_everyone)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		senderID, receiverID, text, image, at.UnixNano(), false,
	).Scan(&id)
	if err != nil {
		return domain.Message{}, domain.Storage("append message", err)
	}
	s.last = at

	return domain.Message{
		ID:         id,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		Image:      image,
		CreatedAt:  at,
		DeletedFor: []string{},
	}, nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (domain.Message, error) {
	msgs, err := s.selectMessages(ctx, `SELECT `+messageCols+` FROM messages WHERE id = ?`, id)
	if err != nil {
		return domain.Message{}, err
	}
	if len(msgs) == 0 {
		return domain.Message{}, domain.NotFoundf("message %d not found", id)
	}
	if err := s.attachHidden(ctx, msgs); err != nil {
		return domain.Message{}, err
	}
	return msgs[0], nil
}

func (s *SQLStore) Query(ctx context.Context, userA, userB, viewerID string) ([]domain.Message, error) {
	msgs, err := s.selectMessages(ctx,
		`SELECT `+messageCols+` FROM messages WHERE `+pairCond+` ORDER BY created_at ASC, id ASC`,
		userA, userB, userB, userA)
	if err != nil {
		return nil, err
	}
	if err := s.attachPairHidden(ctx, msgs, userA, userB); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *SQLStore) Latest(ctx context.Context, userA, userB string) (*domain.Message, error) {
	msgs, err := s.selectMessages(ctx,
		`SELECT `+messageCols+` FROM messages WHERE `+pairCond+` ORDER BY created_at DESC, id DESC LIMIT 1`,
		userA, userB, userB, userA)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	if err := s.attachHidden(ctx, msgs); err != nil {
		return nil, err
	}
	return &msgs[0], nil
}

func (s *SQLStore) SoftDeleteForViewer(ctx context.Context, id int64, viewerID string) (domain.Message, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return domain.Message{}, err
	}
	if err := checkViewer(m, viewerID); err != nil {
		return domain.Message{}, err
	}
	if m.HiddenFor(viewerID) {
		return m, nil
	}
	_, err = s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO message_hidden (message_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING`),
		id, viewerID)
	if err != nil {
		return domain.Message{}, domain.Storage("hide message", err)
	}
	return s.Get(ctx, id)
}

func (s *SQLStore) Tombstone(ctx context.Context, id int64, requesterID string, now time.Time) (domain.Message, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return domain.Message{}, err
	}
	if err := checkTombstone(m, requesterID, now, s.window); err != nil {
		return domain.Message{}, err
	}
	if m.DeletedForEveryone {
		return m, nil
	}
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE messages SET deleted_for_everyone = ?, text = ?, image = NULL WHERE id = ?`),
		true, domain.DeletedPlaceholder, id)
	if err != nil {
		return domain.Message{}, domain.Storage("tombstone message", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// cleared between the read and the update
		return domain.Message{}, domain.NotFoundf("message %d not found", id)
	}
	m.Redact()
	return m, nil
}

func (s *SQLStore) ClearBetween(ctx context.Context, userA, userB string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, domain.Storage("begin clear", err)
	}
	defer tx.Rollback()

	args := []any{userA, userB, userB, userA}
	if _, err := tx.ExecContext(ctx, s.rebind(
		`DELETE FROM message_hidden WHERE message_id IN (SELECT id FROM messages WHERE `+pairCond+`)`), args...); err != nil {
		return 0, domain.Storage("clear hidden rows", err)
	}
	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM messages WHERE `+pairCond), args...)
	if err != nil {
		return 0, domain.Storage("clear messages", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, domain.Storage("commit clear", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// selectMessages drains rows before returning so a single-connection pool
// (sqlite) is free for the follow-up hidden-row query.
func (s *SQLStore) selectMessages(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, domain.Storage("query messages", err)
	}
	defer rows.Close()

	msgs := []domain.Message{}
	for rows.Next() {
		var (
			m           domain.Message
			text, image sql.NullString
			createdAt   int64
		)
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &text, &image, &createdAt, &m.DeletedForEveryone); err != nil {
			return nil, domain.Storage("scan message", err)
		}
		if text.Valid {
			m.Text = lo.ToPtr(text.String)
		}
		if image.Valid {
			m.Image = lo.ToPtr(image.String)
		}
		m.CreatedAt = time.Unix(0, createdAt).UTC()
		m.DeletedFor = []string{}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage("iterate messages", err)
	}
	return msgs, nil
}

// attachHidden loads hide rows for one message.
func (s *SQLStore) attachHidden(ctx context.Context, msgs []domain.Message) error {
	if len(msgs) != 1 {
		return nil
	}
	return s.fillHidden(ctx, msgs,
		`SELECT message_id, user_id FROM message_hidden WHERE message_id = ? ORDER BY user_id`, msgs[0].ID)
}

// attachPairHidden loads hide rows for a whole pair with a join, so the
// statement size does not grow with the history.
func (s *SQLStore) attachPairHidden(ctx context.Context, msgs []domain.Message, userA, userB string) error {
	if len(msgs) == 0 {
		return nil
	}
	return s.fillHidden(ctx, msgs,
		`SELECT h.message_id, h.user_id FROM message_hidden h
		 JOIN messages m ON m.id = h.message_id
		 WHERE `+pairCond+` ORDER BY h.user_id`,
		userA, userB, userB, userA)
}

func (s *SQLStore) fillHidden(ctx context.Context, msgs []domain.Message, query string, args ...any) error {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return domain.Storage("query hidden rows", err)
	}
	defer rows.Close()

	hidden := map[int64][]string{}
	for rows.Next() {
		var (
			id  int64
			uid string
		)
		if err := rows.Scan(&id, &uid); err != nil {
			return domain.Storage("scan hidden row", err)
		}
		hidden[id] = append(hidden[id], uid)
	}
	if err := rows.Err(); err != nil {
		return domain.Storage("iterate hidden rows", err)
	}
	for i := range msgs {
		if h, ok := hidden[msgs[i].ID]; ok {
			msgs[i].DeletedFor = h
		}
	}
	return nil
}

func (s *SQLStore) rebind(query string) string {
	return s.dialect.Rebind(query)
}

var _ Store = (*SQLStore)(nil)
