package messages

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ageniuscoder/pairchat/backend/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	messagesCollection = "messages"
	countersCollection = "counters"
)

type messageDoc struct {
	ID                 int64    `bson:"_id"`
	SenderID           string   `bson:"sender_id"`
	ReceiverID         string   `bson:"receiver_id"`
	Text               *string  `bson:"text,omitempty"`
	Image              *string  `bson:"image,omitempty"`
	CreatedAt          int64    `bson:"created_at"` // unix nanoseconds
	DeletedFor         []string `bson:"deleted_for"`
	DeletedForEveryone bool     `bson:"deleted_for_everyone"`
}

func (d messageDoc) toMessage() domain.Message {
	deletedFor := d.DeletedFor
	if deletedFor == nil {
		deletedFor = []string{}
	}
	return domain.Message{
		ID:                 d.ID,
		SenderID:           d.SenderID,
		ReceiverID:         d.ReceiverID,
		Text:               d.Text,
		Image:              d.Image,
		CreatedAt:          time.Unix(0, d.CreatedAt).UTC(),
		DeletedFor:         deletedFor,
		DeletedForEveryone: d.DeletedForEveryone,
	}
}

// MongoStore implements Store on MongoDB. Ids come from a counter document so
// they stay numeric and creation-ordered like the SQL backends.
type MongoStore struct {
	coll     *mongo.Collection
	counters *mongo.Collection
	now      func() time.Time
	window   time.Duration

	appendMu sync.Mutex
	last     time.Time
	loaded   bool
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		coll:     db.Collection(messagesCollection),
		counters: db.Collection(countersCollection),
		now:      time.Now,
		window:   domain.TombstoneWindow,
	}
}

// WithClock replaces the clock used to stamp new messages.
func (s *MongoStore) WithClock(now func() time.Time) *MongoStore {
	s.now = now
	return s
}

// WithTombstoneWindow overrides the delete-for-everyone window.
func (s *MongoStore) WithTombstoneWindow(d time.Duration) *MongoStore {
	if d > 0 {
		s.window = d
	}
	return s
}

// EnsureIndexes creates the pair lookup index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	return domain.Storage("create message index", err)
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, readpref.Primary())
}

func pairFilter(userA, userB string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"sender_id": userA, "receiver_id": userB},
		bson.M{"sender_id": userB, "receiver_id": userA},
	}}
}

func (s *MongoStore) Append(ctx context.Context, senderID, receiverID string, text, image *string) (domain.Message, error) {
	if err := domain.ValidateNew(senderID, receiverID, text, image); err != nil {
		return domain.Message{}, err
	}
	text, image = domain.NormalizeContent(text), domain.NormalizeContent(image)

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	if !s.loaded {
		var newest messageDoc
		err := s.coll.FindOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})).Decode(&newest)
		switch {
		case err == nil:
			s.last = time.Unix(0, newest.CreatedAt).UTC()
		case !errors.Is(err, mongo.ErrNoDocuments):
			return domain.Message{}, domain.Storage("load last timestamp", err)
		}
		s.loaded = true
	}

	id, err := s.nextID(ctx)
	if err != nil {
		return domain.Message{}, err
	}
	at := monotonic(s.now(), s.last)
	doc := messageDoc{
		ID:         id,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		Image:      image,
		CreatedAt:  at.UnixNano(),
		DeletedFor: []string{},
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return domain.Message{}, domain.Storage("append message", err)
	}
	s.last = at
	return doc.toMessage(), nil
}

func (s *MongoStore) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": messagesCollection},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, domain.Storage("allocate message id", err)
	}
	return counter.Seq, nil
}

func (s *MongoStore) Get(ctx context.Context, id int64) (domain.Message, error) {
	var doc messageDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Message{}, domain.NotFoundf("message %d not found", id)
	}
	if err != nil {
		return domain.Message{}, domain.Storage("get message", err)
	}
	return doc.toMessage(), nil
}

func (s *MongoStore) Query(ctx context.Context, userA, userB, viewerID string) ([]domain.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, pairFilter(userA, userB), opts)
	if err != nil {
		return nil, domain.Storage("query messages", err)
	}
	var docs []messageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.Storage("decode messages", err)
	}
	msgs := make([]domain.Message, 0, len(docs))
	for _, d := range docs {
		msgs = append(msgs, d.toMessage())
	}
	return msgs, nil
}

func (s *MongoStore) Latest(ctx context.Context, userA, userB string) (*domain.Message, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	var doc messageDoc
	err := s.coll.FindOne(ctx, pairFilter(userA, userB), opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Storage("latest message", err)
	}
	m := doc.toMessage()
	return &m, nil
}

func (s *MongoStore) SoftDeleteForViewer(ctx context.Context, id int64, viewerID string) (domain.Message, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return domain.Message{}, err
	}
	if err := checkViewer(m, viewerID); err != nil {
		return domain.Message{}, err
	}
	if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{"deleted_for": viewerID}}); err != nil {
		return domain.Message{}, domain.Storage("hide message", err)
	}
	return s.Get(ctx, id)
}

func (s *MongoStore) Tombstone(ctx context.Context, id int64, requesterID string, now time.Time) (domain.Message, error) {
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
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"deleted_for_everyone": true, "text": domain.DeletedPlaceholder},
		"$unset": bson.M{"image": ""},
	})
	if err != nil {
		return domain.Message{}, domain.Storage("tombstone message", err)
	}
	if res.MatchedCount == 0 {
		return domain.Message{}, domain.NotFoundf("message %d not found", id)
	}
	m.Redact()
	return m, nil
}

func (s *MongoStore) ClearBetween(ctx context.Context, userA, userB string) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, pairFilter(userA, userB))
	if err != nil {
		return 0, domain.Storage("clear messages", err)
	}
	return res.DeletedCount, nil
}

var _ Store = (*MongoStore)(nil)
