package ddl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraiseql/confiture-sub001/pkg/ddl"
)

func TestParseSimpleTable(t *testing.T) {
	src := `CREATE TABLE users (
		id int PRIMARY KEY,
		email text NOT NULL,
		bio text DEFAULT 'n/a'
	);`

	res := ddl.Parse(src)
	require.Empty(t, res.Diagnostics)
	require.Len(t, res.Facts.Tables, 1)

	table := res.Facts.Tables[0]
	assert.Equal(t, "users", table.Name)
	require.Len(t, table.Columns, 3)

	id, ok := table.Column("id")
	require.True(t, ok)
	assert.True(t, id.IsPrimaryKey)
	assert.False(t, id.Nullable)

	email, ok := table.Column("email")
	require.True(t, ok)
	assert.False(t, email.Nullable)

	bio, ok := table.Column("bio")
	require.True(t, ok)
	require.NotNil(t, bio.DefaultExpr)
	assert.Equal(t, "'n/a'", *bio.DefaultExpr)
}

func TestParseTableLevelForeignKey(t *testing.T) {
	src := `CREATE TABLE orders (
		id int PRIMARY KEY,
		customer_id int NOT NULL,
		FOREIGN KEY (customer_id) REFERENCES users(id)
	);`

	res := ddl.Parse(src)
	require.Len(t, res.Facts.ForeignKeys, 1)
	fk := res.Facts.ForeignKeys[0]
	assert.Equal(t, "orders", fk.FromTable)
	assert.Equal(t, []string{"customer_id"}, fk.ViaColumns)
	assert.Equal(t, "users", fk.ToTable)
	assert.Equal(t, []string{"id"}, fk.OnColumns)
}

func TestParseInlineForeignKey(t *testing.T) {
	src := `CREATE TABLE orders (
		id int PRIMARY KEY,
		customer_id int REFERENCES users (id)
	);`

	res := ddl.Parse(src)
	require.Len(t, res.Facts.ForeignKeys, 1)
	assert.Equal(t, "customer_id", res.Facts.ForeignKeys[0].ViaColumns[0])
}

func TestParseIgnoresNonCreateTable(t *testing.T) {
	src := `CREATE INDEX idx_users_email ON users (email);`
	res := ddl.Parse(src)
	assert.Empty(t, res.Facts.Tables)
}

func TestParsePreservesVerbatimType(t *testing.T) {
	src := `CREATE TABLE t (a character varying(255) NOT NULL);`
	res := ddl.Parse(src)
	require.Len(t, res.Facts.Tables, 1)
	col, ok := res.Facts.Tables[0].Column("a")
	require.True(t, ok)
	assert.Equal(t, "character varying(255)", col.PostgresType)
}
