package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuildSchema_DeterministicOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.sql", "CREATE TABLE b (id int);")
	writeFile(t, dir, "a.sql", "CREATE TABLE a (id int);")

	files, body, err := BuildSchema(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.sql", files[0].RelPath)
	assert.Equal(t, "b.sql", files[1].RelPath)
	assert.Contains(t, body, "CREATE TABLE a")
}

func TestContentHash_StableForSameInput(t *testing.T) {
	files := []SourceFile{{RelPath: "a.sql", Bytes: []byte("x")}}
	assert.Equal(t, ContentHash(files), ContentHash(files))
}

func TestContentHash_DiffersOnByteChange(t *testing.T) {
	a := []SourceFile{{RelPath: "a.sql", Bytes: []byte("x")}}
	b := []SourceFile{{RelPath: "a.sql", Bytes: []byte("y")}}
	assert.NotEqual(t, ContentHash(a), ContentHash(b))
}

func TestBuild_And_Render_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "001_init.sql", "CREATE TABLE t (id int);")

	snap, err := Build("staging", dir, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Header.FilesIncluded)

	rendered := snap.Render()
	parsed, err := Parse(rendered)
	require.NoError(t, err)
	assert.Equal(t, "staging", parsed.Header.Environment)
	assert.Equal(t, snap.Header.SchemaHash, parsed.Header.SchemaHash)
	assert.Equal(t, 1, parsed.Header.FilesIncluded)
	assert.Contains(t, parsed.Body, "CREATE TABLE t")
}

func TestWriteToHistory_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	snap := Snapshot{Header: Header{Environment: "local", SchemaHash: "abc", FilesIncluded: 0}}

	path, err := WriteToHistory(dir, "001", "init", snap)
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = WriteToHistory(dir, "001", "init", snap)
	assert.Error(t, err)
}

func TestListHistory_SortedByVersion(t *testing.T) {
	dir := t.TempDir()
	snap := Snapshot{Header: Header{Environment: "local", FilesIncluded: 0}}
	_, err := WriteToHistory(dir, "010", "later", snap)
	require.NoError(t, err)
	_, err = WriteToHistory(dir, "002", "earlier", snap)
	require.NoError(t, err)

	entries, err := ListHistory(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "002", entries[0].Version)
	assert.Equal(t, "010", entries[1].Version)
}

func TestListHistory_MissingDirReturnsEmpty(t *testing.T) {
	entries, err := ListHistory(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
