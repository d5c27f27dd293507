package seed

import (
	"strings"

	"github.com/google/uuid"
)

// matchesSeedEnumerated checks the seed-enumerated UUID shape:
// {entity:6}{directory:2}-{function:4}-{scenario:4}-0000-{increment:12},
// where function is 4 hex digits, scenario is one of 0000/1000/2000/3000,
// and increment is 12 decimal digits. entity and directory aren't
// independently validated here (the caller doesn't generally know the
// expected schema entity for a bare identifier column), only the overall
// shape. uuid.Parse does the hyphen-position and hex-digit validation that
// a hand-rolled check would otherwise have to duplicate; this function only
// adds the seed-specific tag constraints on top.
func matchesSeedEnumerated(s string) bool {
	if _, err := uuid.Parse(s); err != nil {
		return false
	}
	parts := strings.Split(s, "-")
	if len(parts) != 5 {
		return false
	}
	_, function, scenario, fixed, increment := parts[0], parts[1], parts[2], parts[3], parts[4]

	if len(function) != 4 {
		return false
	}
	switch scenario {
	case "0000", "1000", "2000", "3000":
	default:
		return false
	}
	if fixed != "0000" {
		return false
	}
	if len(increment) != 12 || !isDigits(increment) {
		return false
	}
	return true
}

// matchesTestPlaceholder checks that every non-dash character of uuid is
// the same digit, e.g. 11111111-1111-1111-1111-111111111111.
func matchesTestPlaceholder(s string) bool {
	if _, err := uuid.Parse(s); err != nil {
		return false
	}
	chars := strings.ReplaceAll(s, "-", "")
	if !isDigits(chars) {
		return false
	}
	first := chars[0]
	for i := 1; i < len(chars); i++ {
		if chars[i] != first {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// MatchesPattern reports whether uuid satisfies the named pattern tag.
func MatchesPattern(tag PatternTag, uuid string) bool {
	switch tag {
	case PatternSeedEnumerated:
		return matchesSeedEnumerated(uuid)
	case PatternTestPlaceholder:
		return matchesTestPlaceholder(uuid)
	default:
		return true
	}
}
