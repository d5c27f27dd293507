package migrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestDiscoverPairsUpAndDown(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "001_create_users.up.sql", "CREATE TABLE users (id int);")
	writeFile(t, dir, "001_create_users.down.sql", "DROP TABLE users;")
	writeFile(t, dir, "002_add_email.up.sql", "ALTER TABLE users ADD COLUMN email text;")
	writeFile(t, dir, "002_add_email.down.sql", "ALTER TABLE users DROP COLUMN email;")

	units, err := Discover(dir)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "001", units[0].Version)
	assert.Equal(t, "create_users", units[0].Name)
	assert.Equal(t, "002", units[1].Version)
}

func TestDiscoverMissingDownFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "001_create_users.up.sql", "CREATE TABLE users (id int);")

	_, err := Discover(dir)
	require.Error(t, err)
}

func TestDiscoverMissingUpFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "001_create_users.down.sql", "DROP TABLE users;")

	_, err := Discover(dir)
	require.Error(t, err)
}

func TestDiscoverDuplicateNameDifferentVersionConflicts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "001_create_users.up.sql", "CREATE TABLE users (id int);")
	writeFile(t, dir, "001_create_users.down.sql", "DROP TABLE users;")
	writeFile(t, dir, "002_create_users.up.sql", "CREATE TABLE users2 (id int);")
	writeFile(t, dir, "002_create_users.down.sql", "DROP TABLE users2;")

	_, err := Discover(dir)
	require.Error(t, err)
}

func TestDiscoverSortsByVersion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "20260101000000_later.up.sql", "SELECT 1;")
	writeFile(t, dir, "20260101000000_later.down.sql", "SELECT 1;")
	writeFile(t, dir, "2_earlier.up.sql", "SELECT 1;")
	writeFile(t, dir, "2_earlier.down.sql", "SELECT 1;")

	units, err := Discover(dir)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "2_earlier", "2"+"_"+units[0].Name)
	assert.Equal(t, "earlier", units[0].Name)
}

func TestDiscoverIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "001_create_users.up.sql", "CREATE TABLE users (id int);")
	writeFile(t, dir, "001_create_users.down.sql", "DROP TABLE users;")
	writeFile(t, dir, "README.md", "not a migration")

	units, err := Discover(dir)
	require.NoError(t, err)
	require.Len(t, units, 1)
}
