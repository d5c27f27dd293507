package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecord_CompliantSample_NoViolation(t *testing.T) {
	r := NewRegistry("production")
	now := time.Unix(1000, 0)
	r.Record("migration_apply", 10*time.Millisecond, OutcomeSuccess, now)
	assert.Empty(t, r.Violations(""))
	assert.Equal(t, 1.0, r.Compliance("migration_apply"))
}

func TestRecord_SlowSample_WarningViolation(t *testing.T) {
	r := NewRegistry("production")
	now := time.Unix(1000, 0)
	r.Record("migration_apply", 40*time.Millisecond, OutcomeSuccess, now)
	vs := r.Violations("migration_apply")
	if assert.Len(t, vs, 1) {
		assert.Equal(t, "warning", vs[0].Severity)
	}
}

func TestRecord_VerySlowSample_ErrorViolation(t *testing.T) {
	r := NewRegistry("production")
	now := time.Unix(1000, 0)
	r.Record("migration_apply", 100*time.Millisecond, OutcomeSuccess, now)
	vs := r.Violations("migration_apply")
	if assert.Len(t, vs, 1) {
		assert.Equal(t, "error", vs[0].Severity)
	}
}

func TestCompliance_NoSamples_ReturnsZero(t *testing.T) {
	r := NewRegistry("production")
	assert.Equal(t, 0.0, r.Compliance("unknown_op"))
}

func TestTargetsFor_UnknownEnvironment_DefaultsToProduction(t *testing.T) {
	assert.Equal(t, TargetsFor("production"), TargetsFor("nonexistent"))
}

func TestTimer_RecordsElapsed(t *testing.T) {
	r := NewRegistry("local")
	start := time.Unix(1000, 0)
	stop := r.Timer("seed_load", start)
	stop(OutcomeSuccess, start.Add(5*time.Millisecond))
	samples := r.Samples()
	if assert.Len(t, samples, 1) {
		assert.Equal(t, 5*time.Millisecond, samples[0].Duration)
	}
}
