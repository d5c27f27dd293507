package seed

import "testing"

func TestMatchesSeedEnumerated(t *testing.T) {
	cases := map[string]bool{
		"aaaaaaaa-bbbb-0000-0000-000000000001": true,
		"aaaaaaaa-bbbb-1000-0000-000000000001": true,
		"aaaaaaaa-bbbb-9999-0000-000000000001": false, // bad scenario
		"aaaaaaaa-bbbb-0000-0001-000000000001": false, // fixed segment not 0000
		"aaaaaaaa-bbbb-0000-0000-00000000001":  false, // increment too short
		"not-a-uuid-at-all":                    false,
	}
	for uuid, want := range cases {
		if got := matchesSeedEnumerated(uuid); got != want {
			t.Errorf("matchesSeedEnumerated(%q) = %v, want %v", uuid, got, want)
		}
	}
}

func TestMatchesTestPlaceholder(t *testing.T) {
	cases := map[string]bool{
		"11111111-1111-1111-1111-111111111111": true,
		"99999999-9999-9999-9999-999999999999": true,
		"11111111-1111-1111-1111-111111111112": false,
		"aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa":  false, // not digits
	}
	for uuid, want := range cases {
		if got := matchesTestPlaceholder(uuid); got != want {
			t.Errorf("matchesTestPlaceholder(%q) = %v, want %v", uuid, got, want)
		}
	}
}

func TestMatchesPattern_UnknownTagPasses(t *testing.T) {
	if !MatchesPattern("", "anything-goes-here-1234") {
		t.Error("empty pattern tag should always match")
	}
}
