package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindMatchingSnapshotExactMatch(t *testing.T) {
	ddl := "CREATE TABLE users (id int);"
	snaps := []Snapshot{{Version: "001", Text: ddl}}
	result := FindMatchingSnapshot(ddl, snaps, 0)
	assert.True(t, result.Matched)
	assert.Equal(t, "001", result.Version)
	assert.Equal(t, 1.0, result.Ratio)
}

func TestFindMatchingSnapshotFuzzyMatch(t *testing.T) {
	base := "CREATE TABLE users (id int, name text, email text, created_at timestamptz);"
	drifted := "CREATE TABLE users (id int, name text, email text, created_at timestamptz, extra_col int);"
	snaps := []Snapshot{{Version: "005", Text: base}}
	result := FindMatchingSnapshot(drifted, snaps, 0.5)
	assert.True(t, result.Matched)
	assert.Equal(t, "005", result.Version)
}

func TestFindMatchingSnapshotNoMatch(t *testing.T) {
	snaps := []Snapshot{{Version: "001", Text: "CREATE TABLE a (x int);"}}
	result := FindMatchingSnapshot("CREATE TABLE completely_unrelated_structure (totally_different_col text);", snaps, 0.99)
	assert.False(t, result.Matched)
	assert.Equal(t, "001", result.BestNearMiss)
}
