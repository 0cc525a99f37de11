package lifecycle

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/solstore/core"
	"github.com/poiesic/solstore/location"
	"github.com/poiesic/solstore/sizegate"
	"github.com/poiesic/solstore/storage"
	badgerstore "github.com/poiesic/solstore/storage/badger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type badgerFixture struct {
	service  *Service
	location *location.RootService
	tracker  *sizegate.MapTracker
	metrics  *Metrics
}

func newBadgerFixture(t *testing.T, opener *badgerstore.Opener) *badgerFixture {
	t.Helper()
	loc := location.NewRootService(filepath.Join(t.TempDir(), "stores"), nil)
	tracker := sizegate.NewMapTracker()
	gate, err := sizegate.New(tracker, sizegate.WithThreshold(1024))
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	service, err := New(loc, gate, opener, WithMetrics(metrics))
	require.NoError(t, err)
	unsubscribe := loc.Subscribe(service.OnWorkingFolderChanging)
	t.Cleanup(func() {
		unsubscribe()
		service.Close()
	})
	return &badgerFixture{service: service, location: loc, tracker: tracker, metrics: metrics}
}

func (f *badgerFixture) solution(size int64) *core.Solution {
	solution := newSolution(filepath.Join("/src", core.NewProjectID().String(), "app.sln"))
	f.tracker.Set(solution.ID, size)
	return solution
}

func TestBadger_PersistsAcrossRelease(t *testing.T) {
	f := newBadgerFixture(t, &badgerstore.Opener{})
	solution := f.solution(4096)

	s := f.service.GetStorage(t.Context(), solution)
	require.False(t, storage.IsNoOp(s))
	require.True(t, write(t, s, "k", "persisted"))
	require.NoError(t, s.Close())

	// The reopen waits for the background close to release the directory lock.
	s = f.service.GetStorage(t.Context(), solution)
	defer s.Close()
	require.False(t, storage.IsNoOp(s))
	value, ok := read(t, s, "k")
	require.True(t, ok)
	assert.Equal(t, "persisted", value)
}

func TestBadger_BelowThreshold(t *testing.T) {
	f := newBadgerFixture(t, &badgerstore.Opener{})

	s := f.service.GetStorage(t.Context(), f.solution(10))
	defer s.Close()
	assert.True(t, storage.IsNoOp(s))
	assert.False(t, write(t, s, "k", "dropped"))
}

func TestBadger_RemoteIgnoresThreshold(t *testing.T) {
	f := newBadgerFixture(t, &badgerstore.Opener{})
	solution := f.solution(10)
	solution.WorkspaceKind = core.WorkspaceKindRemote

	s := f.service.GetStorage(t.Context(), solution)
	defer s.Close()
	assert.False(t, storage.IsNoOp(s))
}

func TestBadger_RecoversCorruptStore(t *testing.T) {
	f := newBadgerFixture(t, &badgerstore.Opener{})
	solution := f.solution(4096)

	folder, ok := f.location.WorkingFolder(solution)
	require.True(t, ok)
	storeDir := storage.StoreDirectory(folder)
	require.NoError(t, os.MkdirAll(storeDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(storeDir, "MANIFEST"), []byte("definitely not badger"), 0644))

	s := f.service.GetStorage(t.Context(), solution)
	defer s.Close()
	require.False(t, storage.IsNoOp(s))
	assert.True(t, write(t, s, "k", "v"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.corruptRecovered))
}

func TestBadger_ImmediateRootChange(t *testing.T) {
	// Created first so its cleanup runs after the service has closed.
	newRoot := filepath.Join(t.TempDir(), "moved")
	f := newBadgerFixture(t, &badgerstore.Opener{})
	solution := f.solution(4096)

	live := f.service.GetStorage(t.Context(), solution)
	defer live.Close()
	require.True(t, write(t, live, "k", "old"))
	old := live.(*storageHandle).ref.Target()

	f.location.SetRoot(newRoot, true)

	assert.True(t, old.IsClosed())
	assert.False(t, write(t, live, "k", "again"))

	fresh := f.service.GetStorage(t.Context(), solution)
	defer fresh.Close()
	backend := fresh.(*storageHandle).ref.Target()
	assert.NotSame(t, old, backend)
	assert.Equal(t, newRoot, filepath.Dir(backend.WorkingFolder()))
	_, ok := read(t, fresh, "k")
	assert.False(t, ok, "new location starts empty")
}

func TestBadger_WatcherInvalidates(t *testing.T) {
	// A file-backed store cannot flush once its directory has moved.
	f := newBadgerFixture(t, &badgerstore.Opener{InMemory: true})
	solution := f.solution(4096)

	s := f.service.GetStorage(t.Context(), solution)
	defer s.Close()
	old := s.(*storageHandle).ref.Target()

	watcher, err := location.NewWatcher(f.location, nil)
	require.NoError(t, err)
	require.NoError(t, watcher.Start(t.Context()))
	defer watcher.Close()

	require.NoError(t, os.Rename(f.location.Root(), f.location.Root()+".old"))
	require.Eventually(t, old.IsClosed, waitFor, 10*time.Millisecond)
}
