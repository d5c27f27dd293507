package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fraiseql/confiture-sub001/pkg/normalize"
)

func TestNormalizeStripsCommentsAndCase(t *testing.T) {
	src := "-- comment\nCREATE TABLE Users (Id INT); /* block */"
	got := normalize.Normalize(src)
	assert.NotContains(t, got, "comment")
	assert.NotContains(t, got, "block")
	assert.Contains(t, got, "create table users")
}

func TestNormalizeRemovesIfExistsTokens(t *testing.T) {
	src := "CREATE TABLE IF NOT EXISTS t (id int); DROP TABLE IF EXISTS u;"
	got := normalize.Normalize(src)
	assert.NotContains(t, got, "if not exists")
	assert.NotContains(t, got, "if exists")
}

func TestNormalizeIsIdempotent(t *testing.T) {
	src := "CREATE TABLE B (id int); CREATE TABLE A (id int);"
	once := normalize.Normalize(src)
	twice := normalize.Normalize(once)
	assert.Equal(t, once, twice)
}

func TestNormalizeSortsTablesAlphabetically(t *testing.T) {
	src := "CREATE TABLE zebra (id int); CREATE TABLE apple (id int);"
	got := normalize.Normalize(src)
	appleIdx := indexOf(got, "apple")
	zebraIdx := indexOf(got, "zebra")
	assert.Less(t, appleIdx, zebraIdx)
}

func TestHashStableForEquivalentInput(t *testing.T) {
	a := normalize.Normalize("CREATE TABLE t (id int);   -- comment\n")
	b := normalize.Normalize("CREATE TABLE   t   (id int);")
	assert.Equal(t, normalize.Hash(a), normalize.Hash(b))
}

func TestSimilarityRatioIdenticalIsOne(t *testing.T) {
	a := normalize.Normalize("CREATE TABLE t (id int);")
	assert.InDelta(t, 1.0, normalize.SimilarityRatio(a, a), 0.0001)
}

func TestSimilarityRatioNearMatch(t *testing.T) {
	a := normalize.Normalize("CREATE TABLE t (id int, name text);")
	b := normalize.Normalize("CREATE TABLE t (id int, name text, extra text);")
	ratio := normalize.SimilarityRatio(a, b)
	assert.Greater(t, ratio, 0.7)
	assert.Less(t, ratio, 1.0)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
