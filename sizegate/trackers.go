package sizegate

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/poiesic/solstore/core"
	"golang.org/x/sync/singleflight"
)

// MapTracker holds sizes pushed by the host.
type MapTracker struct {
	mu    sync.RWMutex
	sizes map[core.SolutionID]int64
}

// NewMapTracker creates an empty MapTracker.
func NewMapTracker() *MapTracker {
	return &MapTracker{sizes: make(map[core.SolutionID]int64)}
}

// Set records the size of a solution.
func (t *MapTracker) Set(id core.SolutionID, size int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sizes[id] = size
}

// Remove forgets a solution.
func (t *MapTracker) Remove(id core.SolutionID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sizes, id)
}

// SolutionSize implements Tracker.
func (t *MapTracker) SolutionSize(_ context.Context, solution *core.Solution) (int64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	size, ok := t.sizes[solution.ID]
	return size, ok
}

const (
	// DefaultSizeTTL is how long a measured directory size is reused.
	DefaultSizeTTL = 30 * time.Second

	dirCacheCounters = 10_000
	dirCacheMaxCost  = 1_000
	dirCacheBuffer   = 64
)

// DirTracker measures a solution by summing the sizes of the regular files
// under the directory holding its solution file. Concurrent requests for the
// same directory share one walk, and results are reused for a TTL.
type DirTracker struct {
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
	cache  *ristretto.Cache[string, int64]
	walk   func(ctx context.Context, dir string) (int64, error)
}

// NewDirTracker creates a DirTracker. A non-positive ttl selects DefaultSizeTTL.
func NewDirTracker(ttl time.Duration, logger *slog.Logger) (*DirTracker, error) {
	if ttl <= 0 {
		ttl = DefaultSizeTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, int64]{
		NumCounters: dirCacheCounters,
		MaxCost:     dirCacheMaxCost,
		BufferItems: dirCacheBuffer,
	})
	if err != nil {
		return nil, err
	}
	return &DirTracker{ttl: ttl, logger: logger, cache: cache, walk: walkSize}, nil
}

// SolutionSize implements Tracker. Solutions without a file path have no metric.
func (t *DirTracker) SolutionSize(ctx context.Context, solution *core.Solution) (int64, bool) {
	dir := solution.Directory()
	if dir == "" || ctx.Err() != nil {
		return 0, false
	}
	if size, ok := t.cache.Get(dir); ok {
		return size, true
	}

	// The walk is shared, so one caller giving up must not fail the others.
	walkCtx := context.WithoutCancel(ctx)
	results := t.group.DoChan(dir, func() (any, error) {
		size, err := t.walk(walkCtx, dir)
		if err != nil {
			return int64(0), err
		}
		t.cache.SetWithTTL(dir, size, 1, t.ttl)
		t.cache.Wait()
		return size, nil
	})

	select {
	case res := <-results:
		if res.Err != nil {
			t.logger.Debug("unable to measure solution", "dir", dir, "err", res.Err)
			return 0, false
		}
		return res.Val.(int64), true
	case <-ctx.Done():
		return 0, false
	}
}

// Forget drops any memoised size for the solution's directory.
func (t *DirTracker) Forget(solution *core.Solution) {
	if dir := solution.Directory(); dir != "" {
		t.cache.Del(dir)
	}
}

// Close releases the memo cache.
func (t *DirTracker) Close() {
	t.cache.Close()
}

func walkSize(ctx context.Context, root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// The root itself must be readable; anything below is best effort.
			if path == root {
				return err
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total, err
}
