package badger

import (
	"context"
	"path/filepath"
	"testing"
)

// openTestBackend opens a file-backed store in a fresh temporary working
// folder and closes it when the test ends.
func openTestBackend(t testing.TB) *Backend {
	t.Helper()
	opener := &Opener{}
	folder := filepath.Join(t.TempDir(), "work")
	backend, err := opener.open(context.Background(), folder, filepath.Join(folder, "test.sln"))
	if err != nil {
		t.Fatalf("open test backend: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	return backend
}
