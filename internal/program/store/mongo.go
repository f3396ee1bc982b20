package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"outreach/internal/program"
	"outreach/internal/role"
	"outreach/pkg/platform/sentinel"
)

// MongoStore keeps programs in the programs collection.
type MongoStore struct {
	col *mongo.Collection
}

// NewMongoStore builds a store over the given collection.
func NewMongoStore(col *mongo.Collection) *MongoStore {
	return &MongoStore{col: col}
}

func (s *MongoStore) Create(ctx context.Context, p *program.Program) (string, error) {
	if p.ID.IsZero() {
		p.ID = bson.NewObjectID()
	}
	if _, err := s.col.InsertOne(ctx, p); err != nil {
		return "", fmt.Errorf("insert program: %w", err)
	}
	return p.ID.Hex(), nil
}

func (s *MongoStore) FindOne(ctx context.Context, f Filter) (*program.Program, error) {
	query, err := f.toQuery()
	if err != nil {
		return nil, err
	}
	var p program.Program
	if err := s.col.FindOne(ctx, query).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find program: %w", err)
	}
	return &p, nil
}

func (s *MongoStore) FindPage(ctx context.Context, f Filter, page, pageSize int) (Page, error) {
	query, err := f.toQuery()
	if err != nil {
		return Page{}, err
	}

	count, err := s.col.CountDocuments(ctx, query)
	if err != nil {
		return Page{}, fmt.Errorf("count programs: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(pageSize * (page - 1))).
		SetLimit(int64(pageSize))

	cursor, err := s.col.Find(ctx, query, opts)
	if err != nil {
		return Page{}, fmt.Errorf("find programs: %w", err)
	}
	defer cursor.Close(ctx)

	var data []program.Program
	if err := cursor.All(ctx, &data); err != nil {
		return Page{}, fmt.Errorf("decode programs: %w", err)
	}
	return Page{Data: data, Count: count}, nil
}

func (s *MongoStore) UpdateFields(ctx context.Context, id string, set map[string]any) error {
	return s.updateByID(ctx, id, bson.M{"$set": bson.M(set)})
}

func (s *MongoStore) ReplaceScope(ctx context.Context, id string, scope program.Scope) error {
	return s.updateByID(ctx, id, bson.M{"$set": bson.M{"scope": scope}})
}

func (s *MongoStore) SetScopeRoles(ctx context.Context, id string, roles []role.Role) error {
	return s.updateByID(ctx, id, bson.M{"$set": bson.M{"scope.roles": roles}})
}

func (s *MongoStore) AddScopeRoles(ctx context.Context, id string, roles []role.Role) error {
	return s.updateByID(ctx, id, bson.M{
		"$addToSet": bson.M{"scope.roles": bson.M{"$each": roles}},
	})
}

func (s *MongoStore) RemoveScopeRoles(ctx context.Context, id string, roles []role.Role) error {
	return s.updateByID(ctx, id, bson.M{
		"$pull": bson.M{"scope.roles": bson.M{"$in": roles}},
	})
}

func (s *MongoStore) AddScopeEntities(ctx context.Context, id string, entityIDs []string) error {
	return s.updateByID(ctx, id, bson.M{
		"$addToSet": bson.M{"scope.entities": bson.M{"$each": entityIDs}},
	})
}

func (s *MongoStore) RemoveScopeEntities(ctx context.Context, id string, refs []string) error {
	return s.updateByID(ctx, id, bson.M{
		"$pull": bson.M{"scope.entities": bson.M{"$in": refs}},
	})
}

func (s *MongoStore) updateByID(ctx context.Context, id string, mutation bson.M) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return sentinel.ErrNotFound
	}
	result, err := s.col.UpdateOne(ctx, bson.M{"_id": oid}, mutation)
	if err != nil {
		return fmt.Errorf("update program: %w", err)
	}
	if result.MatchedCount == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (f Filter) toQuery() (bson.M, error) {
	query := bson.M{}
	if f.ID != "" {
		oid, err := bson.ObjectIDFromHex(f.ID)
		if err != nil {
			return nil, sentinel.ErrNotFound
		}
		query["_id"] = oid
	}
	if f.CreatedBy != "" {
		query["createdBy"] = f.CreatedBy
	}
	if f.Status != "" {
		query["status"] = f.Status
	}
	if f.IsDeleted != nil {
		query["isDeleted"] = *f.IsDeleted
	}
	if f.IsPrivate != nil {
		query["isAPrivateProgram"] = *f.IsPrivate
	}
	if f.RequireScope {
		query["scope"] = bson.M{"$exists": true}
	}
	if len(f.RoleCodes) > 0 {
		query["scope.roles.code"] = bson.M{"$in": f.RoleCodes}
	}
	if len(f.EntityIDs) > 0 {
		query["scope.entities"] = bson.M{"$in": f.EntityIDs}
	}
	if f.SearchText != "" {
		pattern := bson.Regex{Pattern: regexp.QuoteMeta(f.SearchText), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"externalId": pattern},
			bson.M{"name": pattern},
			bson.M{"description": pattern},
		}
	}
	for key, value := range f.Extra {
		query[key] = value
	}
	return query, nil
}
