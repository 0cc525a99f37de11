package lifecycle

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/poiesic/solstore/core"
	"github.com/poiesic/solstore/location"
	"github.com/poiesic/solstore/storage"
)

// fakeBackend is an in-memory storage.Backend that records closes.
type fakeBackend struct {
	folder string

	mu     sync.Mutex
	data   map[string][]byte
	closed atomic.Bool
	closes atomic.Int32
}

func newFakeBackend(folder string) *fakeBackend {
	return &fakeBackend{folder: folder, data: make(map[string][]byte)}
}

func (b *fakeBackend) key(scope storage.Scope, name string) string {
	return scope.String() + "/" + name
}

func (b *fakeBackend) ReadStream(_ context.Context, scope storage.Scope, name string, _ core.Checksum) (io.ReadCloser, bool) {
	if b.closed.Load() {
		return nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.data[b.key(scope, name)]
	if !ok {
		return nil, false
	}
	return io.NopCloser(bytes.NewReader(data)), true
}

func (b *fakeBackend) WriteStream(_ context.Context, scope storage.Scope, name string, r io.Reader, _ core.Checksum) bool {
	if b.closed.Load() {
		return false
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[b.key(scope, name)] = data
	return true
}

func (b *fakeBackend) ChecksumMatches(context.Context, storage.Scope, string, core.Checksum) bool {
	return false
}

func (b *fakeBackend) Close() error {
	b.closes.Add(1)
	b.closed.Store(true)
	return nil
}

func (b *fakeBackend) WorkingFolder() string { return b.folder }
func (b *fakeBackend) StorePath() string     { return storage.StoreDirectory(b.folder) }
func (b *fakeBackend) IsClosed() bool        { return b.closed.Load() }

// fakeOpener hands out fakeBackends. Queued errors are returned by successive
// calls before it starts succeeding.
type fakeOpener struct {
	block chan struct{}

	mu     sync.Mutex
	errs   []error
	calls  int
	opened []*fakeBackend
}

func (o *fakeOpener) Open(ctx context.Context, folder, _ string) (storage.Backend, error) {
	if o.block != nil {
		select {
		case <-o.block:
		case <-ctx.Done():
			return nil, &storage.OpenError{Kind: storage.OpenFailed, Err: ctx.Err()}
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if len(o.errs) > 0 {
		err := o.errs[0]
		o.errs = o.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	b := newFakeBackend(folder)
	o.opened = append(o.opened, b)
	return b, nil
}

func (o *fakeOpener) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

// fakeLocation places every solution in root/<id>, or in
// root/<FolderNameFor(path)> when byPath is set.
type fakeLocation struct {
	mu     sync.Mutex
	root   string
	byPath bool
}

func (l *fakeLocation) WorkingFolder(solution *core.Solution) (string, bool) {
	if solution.FilePath == "" {
		return "", false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.byPath {
		return filepath.Join(l.root, core.FolderNameFor(solution.FilePath)), true
	}
	return filepath.Join(l.root, solution.ID.String()), true
}

func (l *fakeLocation) Subscribe(func(location.ChangingEvent)) func() {
	return func() {}
}

func (l *fakeLocation) setRoot(root string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.root = root
}

type gateFunc func(context.Context, *core.Solution) bool

func (f gateFunc) ShouldUseStorage(ctx context.Context, solution *core.Solution) bool {
	return f(ctx, solution)
}

func allowAll(context.Context, *core.Solution) bool { return true }

type faultRecorder struct {
	mu   sync.Mutex
	errs []error
}

func (r *faultRecorder) ReportOpenFailure(_ *core.Solution, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *faultRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}
