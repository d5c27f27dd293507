package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareVersionsEqualLength(t *testing.T) {
	assert.Equal(t, -1, CompareVersions("001", "002"))
	assert.Equal(t, 1, CompareVersions("010", "002"))
	assert.Equal(t, 0, CompareVersions("005", "005"))
}

func TestCompareVersionsDifferentLength(t *testing.T) {
	assert.Equal(t, -1, CompareVersions("9", "10"))
	assert.Equal(t, 1, CompareVersions("20260228131907", "2"))
}

func TestCompareVersionsLexicalFallback(t *testing.T) {
	assert.Equal(t, -1, CompareVersions("a1", "b1"))
}

func TestDetectStrategyDefaultIncremental(t *testing.T) {
	assert.Equal(t, Incremental, DetectStrategy("CREATE TABLE foo (id int);"))
}

func TestDetectStrategyAnnotated(t *testing.T) {
	up := "-- Strategy: rebuild\nCREATE TABLE foo (id int);"
	assert.Equal(t, Rebuild, DetectStrategy(up))
}

func TestDetectStrategyStopsAtFirstNonComment(t *testing.T) {
	up := "CREATE TABLE foo (id int);\n-- Strategy: rebuild\n"
	assert.Equal(t, Incremental, DetectStrategy(up))
}

func TestContentHashStableForIdenticalText(t *testing.T) {
	u1 := Unit{Up: "CREATE TABLE a (id int);"}
	u2 := Unit{Up: "CREATE TABLE a (id int);"}
	assert.Equal(t, u1.ContentHash(), u2.ContentHash())
}

func TestContentHashDiffersForDifferentText(t *testing.T) {
	u1 := Unit{Up: "CREATE TABLE a (id int);"}
	u2 := Unit{Up: "CREATE TABLE b (id int);"}
	assert.NotEqual(t, u1.ContentHash(), u2.ContentHash())
}
