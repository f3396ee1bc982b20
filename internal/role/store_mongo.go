package role

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// MongoCatalog reads role records from the user_roles collection.
type MongoCatalog struct {
	col *mongo.Collection
}

// NewMongoCatalog builds a catalog over the given collection.
func NewMongoCatalog(col *mongo.Collection) *MongoCatalog {
	return &MongoCatalog{col: col}
}

func (c *MongoCatalog) FindByCodes(ctx context.Context, codes []string) ([]Role, error) {
	cursor, err := c.col.Find(ctx,
		bson.M{"code": bson.M{"$in": codes}},
	)
	if err != nil {
		return nil, fmt.Errorf("find roles: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID   bson.ObjectID `bson:"_id"`
		Code string        `bson:"code"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode roles: %w", err)
	}

	roles := make([]Role, 0, len(docs))
	for _, doc := range docs {
		roles = append(roles, Role{ID: doc.ID.Hex(), Code: doc.Code})
	}
	return roles, nil
}
