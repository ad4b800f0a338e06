package tagfilter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/prospector/internal/apperr"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		tags     string
		category string
		want     []Clause
	}{
		{
			name: "key value",
			tags: "amenity=restaurant",
			want: []Clause{{Kind: KeyValue, Key: "amenity", Value: "restaurant"}},
		},
		{
			name: "mixed clauses",
			tags: "amenity=cafe, shop , bakery",
			want: []Clause{
				{Kind: KeyValue, Key: "amenity", Value: "cafe"},
				{Kind: KeyExists, Key: "shop"},
				{Kind: ValueOnly, Value: "bakery"},
			},
		},
		{
			name: "empty value means key exists",
			tags: "cuisine=",
			want: []Clause{{Kind: KeyExists, Key: "cuisine"}},
		},
		{
			name: "duplicates collapse",
			tags: "amenity=bar,amenity=bar",
			want: []Clause{{Kind: KeyValue, Key: "amenity", Value: "bar"}},
		},
		{
			name:     "category mapping",
			category: "Spa",
			want: []Clause{
				{Kind: KeyValue, Key: "shop", Value: "beauty"},
				{Kind: KeyValue, Key: "amenity", Value: "public_bath"},
			},
		},
		{
			name:     "unknown category becomes bare value",
			category: "bouquiniste",
			want:     []Clause{{Kind: ValueOnly, Value: "bouquiniste"}},
		},
		{
			name:     "tags win over category",
			tags:     "shop=books",
			category: "restaurant",
			want:     []Clause{{Kind: KeyValue, Key: "shop", Value: "books"}},
		},
		{
			name: "nothing given",
			want: DefaultClauses(),
		},
		{
			name: "only separators",
			tags: " , ,",
			want: DefaultClauses(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.tags, tt.category)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRejectsUnsafeKey(t *testing.T) {
	_, err := Parse(`ame"nity=bar`, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidFilterKey))
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestParseRejectsUnsafeValue(t *testing.T) {
	_, err := Parse(`amenity=bar"];out;`, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestParseStrict(t *testing.T) {
	_, err := Parse("cuisine=pizza", "", Strict())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidFilterKey))

	got, err := Parse("amenity=pub", "", Strict())
	require.NoError(t, err)
	assert.Equal(t, []Clause{{Kind: KeyValue, Key: "amenity", Value: "pub"}}, got)
}

func TestCategoryToTags(t *testing.T) {
	tags, ok := CategoryToTags("Fast food")
	assert.True(t, ok)
	assert.Equal(t, "amenity=fast_food", tags)

	tags, ok = CategoryToTags("amenity=bar,shop=wine")
	assert.True(t, ok)
	assert.Equal(t, "amenity=bar,shop=wine", tags)

	tags, ok = CategoryToTags("  coworking ")
	assert.False(t, ok)
	assert.Equal(t, "coworking", tags)
}

func TestCategoriesSorted(t *testing.T) {
	cats := Categories()
	require.NotEmpty(t, cats)
	for i := 1; i < len(cats); i++ {
		assert.Less(t, cats[i-1].Name, cats[i].Name)
	}
}
