package testutil

import (
	"os"
	"testing"
)

// MustSetTestEnvironment forces GO_ENV=test for the current process and fails
// the test if the variable cannot be set. Call it from test setup so config
// predicates (IsTest) and env-sensitive code paths see the test environment
// before anything touches a database.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()

	if err := os.Setenv("GO_ENV", "test"); err != nil {
		t.Fatalf("Failed to set GO_ENV=test: %v", err)
	}
	if os.Getenv("GO_ENV") != "test" {
		t.Fatal("Failed to verify GO_ENV=test")
	}
}
