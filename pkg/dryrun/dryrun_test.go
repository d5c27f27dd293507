package dryrun

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeCreateTableIfNotExistsIsSafe(t *testing.T) {
	r := Analyze("CREATE TABLE IF NOT EXISTS users (id int);")
	require.Len(t, r.Statements, 1)
	assert.Equal(t, Safe, r.Statements[0].Classification)
}

func TestAnalyzeDropTableIsUnsafe(t *testing.T) {
	r := Analyze("DROP TABLE users;")
	require.Len(t, r.Statements, 1)
	assert.Equal(t, Unsafe, r.Statements[0].Classification)
	assert.True(t, r.HasUnsafe())
}

func TestAnalyzeDeleteWithoutWhereIsUnsafe(t *testing.T) {
	r := Analyze("DELETE FROM orders;")
	require.Len(t, r.Statements, 1)
	assert.Equal(t, Unsafe, r.Statements[0].Classification)
}

func TestAnalyzeDeleteWithWhereIsWarning(t *testing.T) {
	r := Analyze("DELETE FROM orders WHERE id = 1;")
	require.Len(t, r.Statements, 1)
	assert.Equal(t, Warning, r.Statements[0].Classification)
}

func TestAnalyzeConcurrentIndexIsSafe(t *testing.T) {
	r := Analyze("CREATE INDEX CONCURRENTLY idx_users_email ON users (email);")
	require.Len(t, r.Statements, 1)
	assert.Equal(t, Safe, r.Statements[0].Classification)
}

func TestAnalyzeNonConcurrentIndexIsWarning(t *testing.T) {
	r := Analyze("CREATE INDEX idx_users_email ON users (email);")
	require.Len(t, r.Statements, 1)
	assert.Equal(t, Warning, r.Statements[0].Classification)
	assert.True(t, r.HasWarning())
}

func TestAnalyzeMultipleStatements(t *testing.T) {
	r := Analyze("CREATE TABLE IF NOT EXISTS a (id int); DROP TABLE b;")
	require.Len(t, r.Statements, 2)
	assert.Equal(t, Safe, r.Statements[0].Classification)
	assert.Equal(t, Unsafe, r.Statements[1].Classification)
}
