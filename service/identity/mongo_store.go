package identity

import (
	"context"
	"errors"

	"PPicture/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const userCollection = "user"

type MongoUserStore struct {
	coll *mongo.Collection
}

func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{coll: db.Collection(userCollection)}
}

func (s *MongoUserStore) GetUser(ctx context.Context, userID int64) (*UserRecord, error) {
	var rec UserRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": userID, "isDelete": bson.M{"$ne": 1}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrRecordNotFound.WrapMsg("user not found", "userId", userID)
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "find user", "userId", userID)
	}
	return &rec, nil
}
