package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SingleTriple(t *testing.T) {
	set := Parse("foo.js@10@20")
	require.Len(t, set, 1)
	assert.Equal(t, Filter{Filename: "foo.js", StartLine: 10, EndLine: 20}, set[0])

	assert.True(t, set.Matches("path/to/foo.js", 15))
	assert.True(t, set.Matches("path/to/foo.js", 10))
	assert.True(t, set.Matches("path/to/foo.js", 20))
	assert.False(t, set.Matches("path/to/foo.js", 25))
	assert.False(t, set.Matches("path/to/foo.js", 9))
	assert.False(t, set.Matches("bar.js", 15))
}

func TestParse_Wildcard(t *testing.T) {
	set := Parse("*")
	require.Len(t, set, 1)
	assert.True(t, set[0].IsWildcard())

	assert.True(t, set.Matches("anything.js", 1))
	assert.True(t, set.Matches("", 0))
	assert.True(t, set.Matches("other", -5))
}

func TestParse_MultipleTriples(t *testing.T) {
	set := Parse("a.js@1@2@b.js@30@40")
	require.Len(t, set, 2)
	assert.Equal(t, Filter{Filename: "a.js", StartLine: 1, EndLine: 2}, set[0])
	assert.Equal(t, Filter{Filename: "b.js", StartLine: 30, EndLine: 40}, set[1])

	assert.True(t, set.Matches("x/a.js", 2))
	assert.True(t, set.Matches("x/b.js", 35))
	assert.False(t, set.Matches("x/b.js", 2))
	assert.Equal(t, "a.js@1@2@b.js@30@40", set.String())
}

func TestParse_Lenient(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want Set
	}{
		{"empty", "", nil},
		{"no separators", "foo.js", nil},
		{"single separator", "foo.js@10", nil},
		{"garbage lines", "foo.js@abc@12xyz", Set{{Filename: "foo.js", StartLine: 0, EndLine: 12}}},
		{"trailing partial triple", "a@1@2@b@3", Set{{Filename: "a", StartLine: 1, EndLine: 2}}},
		{"negative start", "a@-3@2", Set{{Filename: "a", StartLine: -3, EndLine: 2}}},
		{"wildcard inside triples is a filename", "*@1@2", Set{{Filename: "*", StartLine: 1, EndLine: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.spec))
		})
	}
}

func TestSet_EmptyMatchesNothing(t *testing.T) {
	var set Set
	assert.True(t, set.Empty())
	assert.False(t, set.Matches("foo.js", 1))
}

func TestMatches_NormalizesFilenames(t *testing.T) {
	// Precomposed in the filter, decomposed in the location.
	set := Parse("caf\u00e9.js@1@5")
	assert.True(t, set.Matches("src/cafe\u0301.js", 3))
	assert.True(t, set[0].Matches("src/cafe\u0301.js", 3))
	assert.False(t, set.Matches("src/cafe.js", 3))
}
