package membership

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore keeps memberships in the program_users collection. The
// (programId, userId) pair carries a unique index; the upsert below is the
// only writer.
type MongoStore struct {
	col *mongo.Collection
}

// NewMongoStore builds a store over the given collection and ensures the
// upsert key's unique index.
func NewMongoStore(ctx context.Context, col *mongo.Collection) (*MongoStore, error) {
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "programId", Value: 1}, {Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("ensure membership index: %w", err)
	}
	return &MongoStore{col: col}, nil
}

// Upsert creates or updates the membership in one atomic findAndModify.
func (s *MongoStore) Upsert(ctx context.Context, programID, userID string, update Update) (*Membership, error) {
	set := bson.M{
		"programId": programID,
		"userId":    userID,
		"updatedAt": update.Now,
	}
	if update.UserRoleInformation != nil {
		set["userRoleInformation"] = update.UserRoleInformation
	}
	if update.UserProfile != nil {
		set["userProfile"] = update.UserProfile
	}
	if update.AppName != "" {
		set["appInformation.appName"] = update.AppName
	}
	if update.AppVersion != "" {
		set["appInformation.appVersion"] = update.AppVersion
	}

	mutation := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"createdAt": update.Now},
	}
	if update.IncResourcesStarted {
		mutation["$inc"] = bson.M{"noOfResourcesStarted": 1}
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var record Membership
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{"programId": programID, "userId": userID},
		mutation,
		opts,
	).Decode(&record)
	if err != nil {
		return nil, fmt.Errorf("upsert membership: %w", err)
	}
	return &record, nil
}
