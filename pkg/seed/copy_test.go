package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyBlock_Render(t *testing.T) {
	block := CopyBlock{
		Table:   "users",
		Columns: []string{"id", "name"},
		Rows: [][]Value{
			{strp("1"), strp("alice")},
			{strp("2"), nil},
		},
	}
	out := block.Render()
	assert.Equal(t, "COPY users (id, name) FROM stdin;\n1\talice\n2\t\\N\n\\.\n", out)
}

func TestCopyBlock_Args(t *testing.T) {
	row := []Value{strp("1"), nil, strp("alice")}
	args := CopyBlock{}.Args(row)
	require.Len(t, args, 3)
	assert.Equal(t, "1", args[0])
	assert.Nil(t, args[1])
	assert.Equal(t, "alice", args[2])
}

func TestEscapeTSV_SpecialChars(t *testing.T) {
	v := "a\tb\nc\\d"
	assert.Equal(t, `a\tb\nc\\d`, escapeTSV(&v))
	assert.Equal(t, `\N`, escapeTSV(nil))
}

func TestConvert_MergesConsecutiveSameTable(t *testing.T) {
	inserts := []Insert{
		{Table: "users", Columns: []string{"id"}, Rows: [][]Value{{strp("1")}}, Eligible: true},
		{Table: "users", Columns: []string{"id"}, Rows: [][]Value{{strp("2")}}, Eligible: true},
	}
	result := Convert(inserts)
	require.Len(t, result.Blocks, 1)
	assert.Len(t, result.Blocks[0].Rows, 2)
	assert.Empty(t, result.Unconverted)
}

func TestConvert_SplitsOnTableChange(t *testing.T) {
	inserts := []Insert{
		{Table: "users", Columns: []string{"id"}, Rows: [][]Value{{strp("1")}}, Eligible: true},
		{Table: "orders", Columns: []string{"id"}, Rows: [][]Value{{strp("2")}}, Eligible: true},
	}
	result := Convert(inserts)
	require.Len(t, result.Blocks, 2)
	assert.Equal(t, "users", result.Blocks[0].Table)
	assert.Equal(t, "orders", result.Blocks[1].Table)
}

func TestConvert_SplitsOnColumnListChange(t *testing.T) {
	inserts := []Insert{
		{Table: "users", Columns: []string{"id"}, Rows: [][]Value{{strp("1")}}, Eligible: true},
		{Table: "users", Columns: []string{"id", "name"}, Rows: [][]Value{{strp("2"), strp("bob")}}, Eligible: true},
	}
	result := Convert(inserts)
	require.Len(t, result.Blocks, 2)
}

func TestConvert_IneligibleGoesToUnconverted(t *testing.T) {
	inserts := []Insert{
		{Table: "users", Raw: "INSERT INTO users VALUES (now())", Eligible: false},
	}
	result := Convert(inserts)
	assert.Empty(t, result.Blocks)
	require.Len(t, result.Unconverted, 1)
}
