package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBuildListFilterAlwaysExcludesInactive(t *testing.T) {
	filter := buildListFilter(ListQuery{})
	assert.Equal(t, bson.M{"isActive": true}, filter)
}

func TestBuildListFilterSearch(t *testing.T) {
	filter := buildListFilter(ListQuery{Search: "logo"})

	or, ok := filter["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 3)

	first, ok := or[0].(bson.M)
	require.True(t, ok)
	regex, ok := first["originalName"].(primitive.Regex)
	require.True(t, ok)
	assert.Equal(t, "logo", regex.Pattern)
	assert.Equal(t, "i", regex.Options)
}

func TestBuildListFilterEscapesRegexMeta(t *testing.T) {
	filter := buildListFilter(ListQuery{Search: "a.b*c"})

	or := filter["$or"].(bson.A)
	regex := or[0].(bson.M)["originalName"].(primitive.Regex)
	assert.Equal(t, `a\.b\*c`, regex.Pattern, "search is a literal substring, not a pattern")
}

func TestBuildListFilterTypePartition(t *testing.T) {
	image := buildListFilter(ListQuery{Type: "image"})
	assert.Equal(t, primitive.Regex{Pattern: "^image/"}, image["mimeType"])

	document := buildListFilter(ListQuery{Type: "document"})
	assert.Equal(t, primitive.Regex{Pattern: "^(application|text)/"}, document["mimeType"])

	all := buildListFilter(ListQuery{Type: "everything"})
	_, has := all["mimeType"]
	assert.False(t, has, "unknown type filter is ignored")
}
