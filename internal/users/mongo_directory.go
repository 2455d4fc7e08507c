package users

import (
	"context"
	"errors"

	"github.com/ageniuscoder/pairchat/backend/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

type MongoDirectory struct {
	coll *mongo.Collection
}

func NewMongoDirectory(db *mongo.Database) *MongoDirectory {
	return &MongoDirectory{coll: db.Collection(usersCollection)}
}

func (d *MongoDirectory) List(ctx context.Context) ([]User, error) {
	cur, err := d.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, domain.Storage("list users", err)
	}
	list := []User{}
	if err := cur.All(ctx, &list); err != nil {
		return nil, domain.Storage("decode users", err)
	}
	return list, nil
}

func (d *MongoDirectory) Exists(ctx context.Context, id string) (bool, error) {
	err := d.coll.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, domain.Storage("lookup user", err)
	}
	return true, nil
}

func (d *MongoDirectory) Get(ctx context.Context, id string) (User, error) {
	var u User
	err := d.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return User{}, domain.NotFoundf("user %s not found", id)
	}
	if err != nil {
		return User{}, domain.Storage("get user", err)
	}
	return u, nil
}

func (d *MongoDirectory) Upsert(ctx context.Context, u User) error {
	if u.ID == "" {
		return domain.Validationf("user id is required")
	}
	update := bson.M{"$set": bson.M{"username": u.Username}}
	if u.Username == "" {
		update = bson.M{"$setOnInsert": bson.M{"username": ""}}
	}
	_, err := d.coll.UpdateOne(ctx, bson.M{"_id": u.ID}, update, options.Update().SetUpsert(true))
	return domain.Storage("upsert user", err)
}

var _ Directory = (*MongoDirectory)(nil)
