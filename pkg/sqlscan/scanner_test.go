package sqlscan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraiseql/confiture-sub001/pkg/sqlscan"
)

func TestSplitStatementsBasic(t *testing.T) {
	src := "CREATE TABLE a (id int); CREATE TABLE b (id int);"
	stmts := sqlscan.SplitStatements(src)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0].Text, "TABLE a")
	assert.Contains(t, stmts[1].Text, "TABLE b")
}

func TestSplitStatementsIgnoresSemicolonInString(t *testing.T) {
	src := "INSERT INTO t (v) VALUES (';'); SELECT 1;"
	stmts := sqlscan.SplitStatements(src)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0].Text, "VALUES (';')")
}

func TestSplitStatementsIgnoresSemicolonInLineComment(t *testing.T) {
	src := "SELECT 1; -- a ; b\nSELECT 2;"
	stmts := sqlscan.SplitStatements(src)
	require.Len(t, stmts, 2)
}

func TestSplitStatementsIgnoresSemicolonInBlockComment(t *testing.T) {
	src := "SELECT 1; /* nested /* comment ; */ still here */ SELECT 2;"
	stmts := sqlscan.SplitStatements(src)
	require.Len(t, stmts, 2)
}

func TestSplitStatementsDollarQuoted(t *testing.T) {
	src := `CREATE FUNCTION f() RETURNS void AS $body$ BEGIN SELECT 1; END; $body$ LANGUAGE plpgsql;`
	stmts := sqlscan.SplitStatements(src)
	require.Len(t, stmts, 1)
}

func TestSplitStatementsTrailingPartial(t *testing.T) {
	src := "SELECT 1; SELECT 2"
	stmts := sqlscan.SplitStatements(src)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[1].Text, "SELECT 2")
}

func TestSplitStatementsEmptyTrailingIgnored(t *testing.T) {
	src := "SELECT 1;   \n\t"
	stmts := sqlscan.SplitStatements(src)
	require.Len(t, stmts, 1)
}

func TestValidateCommentsUnclosed(t *testing.T) {
	src := "SELECT 1; /* never closes"
	diags := sqlscan.ValidateComments(src)
	require.Len(t, diags, 2)
	assert.Equal(t, sqlscan.Unclosed, diags[0].Kind)
	assert.Equal(t, sqlscan.Spillover, diags[1].Kind)
}

func TestValidateCommentsClean(t *testing.T) {
	src := "SELECT 1; /* fine */ SELECT 2;"
	diags := sqlscan.ValidateComments(src)
	assert.Empty(t, diags)
}

func TestValidateCommentsNested(t *testing.T) {
	src := "/* outer /* inner */ still unclosed"
	diags := sqlscan.ValidateComments(src)
	require.Len(t, diags, 2)
}
