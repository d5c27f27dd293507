package migrate

import (
	"fmt"

	"github.com/fraiseql/confiture-sub001/pkg/errcat"
)

// ResolvePending returns the units not yet present in applied, in version
// order, optionally truncated to stop at (and including) target. An empty
// target means "apply everything pending". Resolving a target that matches
// no discovered unit is a configuration error.
func ResolvePending(units []Unit, applied []string, target string) ([]Unit, error) {
	appliedSet := make(map[string]bool, len(applied))
	for _, v := range applied {
		appliedSet[v] = true
	}

	var pending []Unit
	for _, u := range units {
		if !appliedSet[u.Version] {
			pending = append(pending, u)
		}
	}

	if target == "" {
		return pending, nil
	}

	found := false
	for _, u := range units {
		if u.Version == target {
			found = true
			break
		}
	}
	if !found {
		return nil, &errcat.ConfigError{
			Code:    "MIGR_005",
			Message: fmt.Sprintf("target version %q matches no discovered migration", target),
			Ctx:     errcat.Context{"target": target},
		}
	}

	var truncated []Unit
	for _, u := range pending {
		if CompareVersions(u.Version, target) > 0 {
			break
		}
		truncated = append(truncated, u)
	}
	return truncated, nil
}

// ResolveRollbackSteps returns the last `steps` applied units, in LIFO
// (most-recently-applied-first) order, with their Down payload resolved
// from the discovered unit set. A version recorded as applied but no
// longer present among discovered units cannot be rolled back — this is
// treated as an orphaned record, and ResolveRollbackSteps refuses rather
// than guessing at the down SQL.
func ResolveRollbackSteps(units []Unit, applied []string, steps int) ([]Unit, error) {
	byVersion := make(map[string]Unit, len(units))
	for _, u := range units {
		byVersion[u.Version] = u
	}

	if steps > len(applied) {
		steps = len(applied)
	}

	var result []Unit
	for i := len(applied) - 1; i >= 0 && len(result) < steps; i-- {
		version := applied[i]
		u, ok := byVersion[version]
		if !ok {
			return nil, &errcat.MigrationError{
				Kind:    errcat.KindRollback,
				Version: version,
				Ctx:     errcat.Context{"reason": "applied version has no matching discovered unit (orphaned)"},
			}
		}
		result = append(result, u)
	}
	return result, nil
}
