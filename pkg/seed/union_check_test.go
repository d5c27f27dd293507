package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectUnionNullTypeMismatch_BareNullVsValue(t *testing.T) {
	src := `SELECT 1, 'a' UNION SELECT NULL, 'b';`
	violations := DetectUnionNullTypeMismatch(src)
	require.Len(t, violations, 1)
	assert.Equal(t, UnionNullTypeMismatch, violations[0].Kind)
}

func TestDetectUnionNullTypeMismatch_TypedNullOK(t *testing.T) {
	src := `SELECT 1, NULL::text UNION SELECT 2, NULL::text;`
	violations := DetectUnionNullTypeMismatch(src)
	assert.Empty(t, violations)
}

func TestDetectUnionNullTypeMismatch_ColumnCountMismatch(t *testing.T) {
	src := `SELECT 1, 2 UNION SELECT 3;`
	violations := DetectUnionNullTypeMismatch(src)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Message, "differing column counts")
}

func TestDetectUnionNullTypeMismatch_NoUnion_NoViolations(t *testing.T) {
	src := `SELECT 1, NULL;`
	violations := DetectUnionNullTypeMismatch(src)
	assert.Empty(t, violations)
}

func TestDetectUnionNullTypeMismatch_BareNullBothSides_OK(t *testing.T) {
	src := `SELECT 1, NULL UNION SELECT 2, NULL;`
	violations := DetectUnionNullTypeMismatch(src)
	assert.Empty(t, violations)
}
