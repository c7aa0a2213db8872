// Package testutil provides fake upstream services and shared helpers for tests.
// It imports no guidesmith packages, so every package's tests can use it.
package testutil

import (
	"os"
	"testing"
)

// TempDBPath returns the path of an empty temporary SQLite file that is
// removed when the test ends.
func TempDBPath(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp("", "guidesmith-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

// TempInbox creates a temporary inbox directory.
func TempInbox(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}
