package confturetest

import (
	"os"
	"testing"
)

// TestNew_SkipsWithoutDatabaseURL confirms Sandbox degrades to a skip
// rather than a failure when no live test database is configured, so this
// package's own tests (and anything built on it) stay runnable in
// environments without Postgres.
func TestNew_SkipsWithoutDatabaseURL(t *testing.T) {
	if os.Getenv(envDatabaseURL) != "" {
		t.Skip("CONFITURE_TEST_DATABASE_URL set; this test only covers the unset case")
	}
	sb := New(t)
	if sb != nil {
		t.Fatal("expected New to skip and return before reaching this line")
	}
}
