package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleUnits() []Unit {
	return []Unit{
		{Version: "001", Name: "a"},
		{Version: "002", Name: "b"},
		{Version: "003", Name: "c"},
	}
}

func TestResolvePendingSkipsApplied(t *testing.T) {
	pending, err := ResolvePending(sampleUnits(), []string{"001"}, "")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "002", pending[0].Version)
	assert.Equal(t, "003", pending[1].Version)
}

func TestResolvePendingTruncatesAtTarget(t *testing.T) {
	pending, err := ResolvePending(sampleUnits(), nil, "002")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "002", pending[len(pending)-1].Version)
}

func TestResolvePendingUnknownTargetErrors(t *testing.T) {
	_, err := ResolvePending(sampleUnits(), nil, "999")
	require.Error(t, err)
}

func TestResolveRollbackStepsLIFO(t *testing.T) {
	units, err := ResolveRollbackSteps(sampleUnits(), []string{"001", "002", "003"}, 2)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "003", units[0].Version)
	assert.Equal(t, "002", units[1].Version)
}

func TestResolveRollbackStepsCapsAtAppliedCount(t *testing.T) {
	units, err := ResolveRollbackSteps(sampleUnits(), []string{"001"}, 5)
	require.NoError(t, err)
	require.Len(t, units, 1)
}

func TestResolveRollbackStepsOrphanedVersionErrors(t *testing.T) {
	_, err := ResolveRollbackSteps(sampleUnits(), []string{"999"}, 1)
	require.Error(t, err)
}
