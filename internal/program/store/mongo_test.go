package store

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestToQuerySearchTextIsLiteral(t *testing.T) {
	query, err := Filter{SearchText: "water (pilot).*"}.toQuery()
	require.NoError(t, err)

	or, ok := query["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 3)
	pattern := or[0].(bson.M)["externalId"].(bson.Regex)
	require.Equal(t, `water \(pilot\)\.\*`, pattern.Pattern)
	require.Equal(t, "i", pattern.Options)
}

func TestToQueryScopeClauses(t *testing.T) {
	query, err := Filter{
		RoleCodes: []string{"ALL", "HM"},
		EntityIDs: []string{"e1"},
	}.toQuery()
	require.NoError(t, err)
	require.Equal(t, bson.M{"$in": []string{"ALL", "HM"}}, query["scope.roles.code"])
	require.Equal(t, bson.M{"$in": []string{"e1"}}, query["scope.entities"])
}
