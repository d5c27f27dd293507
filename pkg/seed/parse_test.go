package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestParseInserts_SimpleEligible(t *testing.T) {
	src := `INSERT INTO users (id, name) VALUES (1, 'alice'), (2, 'bob');`
	inserts := ParseInserts(src)
	require.Len(t, inserts, 1)
	ins := inserts[0]
	assert.True(t, ins.Eligible, ins.IneligibleReason)
	assert.Equal(t, "users", ins.Table)
	assert.Equal(t, []string{"id", "name"}, ins.Columns)
	require.Len(t, ins.Rows, 2)
	assert.Equal(t, "1", *ins.Rows[0][0])
	assert.Equal(t, "alice", *ins.Rows[0][1])
	assert.Equal(t, "bob", *ins.Rows[1][1])
}

func TestParseInserts_NullValue(t *testing.T) {
	src := `INSERT INTO users (id, name) VALUES (1, NULL);`
	inserts := ParseInserts(src)
	require.Len(t, inserts, 1)
	require.Len(t, inserts[0].Rows, 1)
	assert.Nil(t, inserts[0].Rows[0][1])
}

func TestParseInserts_IgnoresNonInsertStatements(t *testing.T) {
	src := `CREATE TABLE t (id int); INSERT INTO t (id) VALUES (1);`
	inserts := ParseInserts(src)
	require.Len(t, inserts, 1)
	assert.Equal(t, "t", inserts[0].Table)
}

func TestIneligible_OnConflict(t *testing.T) {
	src := `INSERT INTO users (id) VALUES (1) ON CONFLICT (id) DO NOTHING;`
	inserts := ParseInserts(src)
	require.Len(t, inserts, 1)
	assert.False(t, inserts[0].Eligible)
	assert.Contains(t, inserts[0].IneligibleReason, "ON CONFLICT")
}

func TestIneligible_Returning(t *testing.T) {
	src := `INSERT INTO users (id) VALUES (1) RETURNING id;`
	inserts := ParseInserts(src)
	assert.False(t, inserts[0].Eligible)
	assert.Contains(t, inserts[0].IneligibleReason, "RETURNING")
}

func TestIneligible_FunctionCall(t *testing.T) {
	src := `INSERT INTO users (id, created_at) VALUES (1, now());`
	inserts := ParseInserts(src)
	assert.False(t, inserts[0].Eligible)
	assert.Contains(t, inserts[0].IneligibleReason, "function call")
}

func TestIneligible_Cast(t *testing.T) {
	src := `INSERT INTO users (id, meta) VALUES (1, '{}'::jsonb);`
	inserts := ParseInserts(src)
	assert.False(t, inserts[0].Eligible)
	assert.Contains(t, inserts[0].IneligibleReason, "cast")
}

func TestIneligible_Case(t *testing.T) {
	src := `INSERT INTO users (id, status) VALUES (1, CASE WHEN true THEN 'a' ELSE 'b' END);`
	inserts := ParseInserts(src)
	assert.False(t, inserts[0].Eligible)
	assert.Contains(t, inserts[0].IneligibleReason, "CASE")
}

func TestIneligible_FunctionCallNotTrippedByStringData(t *testing.T) {
	src := `INSERT INTO users (id, bio) VALUES (1, 'call(me)');`
	inserts := ParseInserts(src)
	assert.True(t, inserts[0].Eligible, inserts[0].IneligibleReason)
	assert.Equal(t, "call(me)", *inserts[0].Rows[0][1])
}

func TestParseInserts_EscapedQuote(t *testing.T) {
	src := `INSERT INTO users (id, name) VALUES (1, 'O''Brien');`
	inserts := ParseInserts(src)
	require.True(t, inserts[0].Eligible)
	assert.Equal(t, "O'Brien", *inserts[0].Rows[0][1])
}
