// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/solstore/core"
	"github.com/poiesic/solstore/location"
	"github.com/poiesic/solstore/refcount"
	"github.com/poiesic/solstore/storage"
)

// Gate decides whether a solution is worth a persistent store.
type Gate interface {
	ShouldUseStorage(ctx context.Context, solution *core.Solution) bool
}

// entry is the cache slot for one solution. While the backend is being opened
// weak is nil and ready is open. The backend and state fields are guarded by
// Service.mu.
type entry struct {
	workingFolder string
	ready         chan struct{}

	backend storage.Backend
	weak    *refcount.Weak[storage.Backend]
	retired bool

	// released is closed once the entry no longer occupies its working
	// folder: its open failed or its backend finished closing.
	released chan struct{}
}

func newEntry(workingFolder string) *entry {
	return &entry{
		workingFolder: workingFolder,
		ready:         make(chan struct{}),
		released:      make(chan struct{}),
	}
}

// primaryPin keeps the primary solution's backend open between callers.
type primaryPin struct {
	id     core.SolutionID
	handle *refcount.Handle[storage.Backend]
}

// Service caches one backend per solution and hands out counted handles.
type Service struct {
	location  location.Service
	gate      Gate
	opener    storage.Opener
	logger    *slog.Logger
	faults    FaultReporter
	metrics   *Metrics
	pool      *ants.Pool
	removeAll func(string) error

	mu      sync.Mutex
	entries map[core.SolutionID]*entry
	failed  map[core.SolutionID]struct{}
	folders map[string]*entry
	primary *primaryPin
	closed  bool

	background sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithDisposerPoolSize sets the number of workers closing released backends.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithDisposerPoolSize(size int) Option {
	return func(s *Service) error {
		if size < 1 {
			return ErrInvalidPoolSize
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if s.pool != nil {
			s.pool.Release()
		}
		s.pool = pool
		return nil
	}
}

// WithFaultReporter sets where open failures are reported.
// Default logs through the service logger.
func WithFaultReporter(reporter FaultReporter) Option {
	return func(s *Service) error {
		s.faults = reporter
		return nil
	}
}

// WithMetrics sets the collectors the service updates.
// Default is an unregistered set.
func WithMetrics(metrics *Metrics) Option {
	return func(s *Service) error {
		s.metrics = metrics
		return nil
	}
}

// WithRemoveAll replaces the function used to delete corrupt stores.
// Default is os.RemoveAll.
func WithRemoveAll(fn func(string) error) Option {
	return func(s *Service) error {
		s.removeAll = fn
		return nil
	}
}

// New creates a Service.
func New(loc location.Service, gate Gate, opener storage.Opener, opts ...Option) (*Service, error) {
	if loc == nil {
		return nil, ErrLocationRequired
	}
	if gate == nil {
		return nil, ErrGateRequired
	}
	if opener == nil {
		return nil, ErrOpenerRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	s := &Service{
		location:  loc,
		gate:      gate,
		opener:    opener,
		logger:    slog.Default(),
		pool:      pool,
		removeAll: os.RemoveAll,
		entries:   make(map[core.SolutionID]*entry),
		failed:    make(map[core.SolutionID]struct{}),
		folders:   make(map[string]*entry),
	}
	for _, opt := range opts {
		if optErr := opt(s); optErr != nil {
			s.pool.Release()
			return nil, optErr
		}
	}
	if s.faults == nil {
		s.faults = LogFaultReporter{Logger: s.logger}
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	return s, nil
}

// GetStorage returns storage for solution. It never returns nil: when the
// solution is on a non-primary branch, is too small, has no location or its
// store cannot be opened, the result is storage.NoOp. The caller must Close
// the result.
func (s *Service) GetStorage(ctx context.Context, solution *core.Solution) storage.Storage {
	if err := core.ValidateSolution(solution); err != nil {
		s.logger.Error("storage requested for invalid solution", "err", err)
		return s.noop(resultInvalid)
	}
	if s.isClosed() {
		return s.noop(resultClosed)
	}
	if !solution.IsPrimaryBranch() {
		return s.noop(resultIneligible)
	}
	if !s.gate.ShouldUseStorage(ctx, solution) {
		return s.noop(resultIneligible)
	}
	folder, ok := s.location.WorkingFolder(solution)
	if !ok {
		return s.noop(resultNoLocation)
	}

	id := solution.ID
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return s.noop(resultClosed)
		}

		e := s.entries[id]
		if e == nil {
			if _, failed := s.failed[id]; failed {
				s.mu.Unlock()
				return s.noop(resultFailed)
			}
			e = newEntry(folder)
			s.entries[id] = e
			s.background.Add(1)
			s.mu.Unlock()
			return s.create(ctx, solution, e)
		}

		if e.weak == nil {
			// Another caller is opening this solution's store.
			ready := e.ready
			s.mu.Unlock()
			select {
			case <-ready:
				continue
			case <-ctx.Done():
				return s.noop(resultCancelled)
			}
		}

		if e.workingFolder != folder {
			s.logger.Debug("working folder moved, replacing store", "solution", id.String(), "from", e.workingFolder, "to", folder)
			closeNow := s.retireLocked(id, e)
			s.mu.Unlock()
			if closeNow {
				s.closeInBackground(e, disposeStale)
			}
			continue
		}

		if ref := e.weak.TryAddReference(); ref != nil {
			s.pinLocked(id, ref)
			s.mu.Unlock()
			s.metrics.requests.WithLabelValues(resultHit).Inc()
			return &storageHandle{ref: ref}
		}

		// The last handle was released and the backend is being closed.
		closeNow := s.retireLocked(id, e)
		s.mu.Unlock()
		if closeNow {
			s.closeInBackground(e, disposeReleased)
		}
	}
}

// create opens the store for a pending entry and installs it. The caller has
// added create to s.background.
func (s *Service) create(ctx context.Context, solution *core.Solution, e *entry) storage.Storage {
	defer s.background.Done()
	id := solution.ID
	backend, err := s.openWithRecovery(ctx, solution, e)

	s.mu.Lock()
	if err != nil {
		cancelled := ctx.Err() != nil
		if s.entries[id] == e {
			delete(s.entries, id)
			if !cancelled {
				// Sticky until the location changes or the solution closes.
				s.failed[id] = struct{}{}
			}
		}
		if s.folders[e.workingFolder] == e {
			delete(s.folders, e.workingFolder)
		}
		s.mu.Unlock()
		close(e.released)
		close(e.ready)

		if cancelled {
			return s.noop(resultCancelled)
		}
		s.reportFault(solution, err)
		return s.noop(resultFailed)
	}

	s.metrics.liveBackends.Inc()
	e.backend = backend
	ref := refcount.New(backend, func(storage.Backend) {
		s.lastReleased(id, e)
	})
	e.weak = ref.Weak()

	if s.closed || s.entries[id] != e {
		// Invalidated or shut down while opening.
		s.retireLocked(id, e)
		s.mu.Unlock()
		close(e.ready)
		s.closeBackend(e, disposeAbandoned)
		return s.noop(resultInvalidated)
	}
	s.pinLocked(id, ref)
	s.mu.Unlock()
	close(e.ready)

	s.metrics.requests.WithLabelValues(resultCreated).Inc()
	return &storageHandle{ref: ref}
}

// openWithRecovery opens the store, deleting and recreating it once if it is
// corrupt.
func (s *Service) openWithRecovery(ctx context.Context, solution *core.Solution, e *entry) (storage.Backend, error) {
	if err := s.claimFolder(ctx, e); err != nil {
		return nil, err
	}

	backend, err := s.opener.Open(ctx, e.workingFolder, solution.FilePath)
	if err == nil {
		return backend, nil
	}
	kind := storage.KindOf(err)
	s.metrics.openFailures.WithLabelValues(kind.String()).Inc()
	if kind != storage.Corrupt || ctx.Err() != nil {
		return nil, err
	}

	storePath := storage.StoreDirectory(e.workingFolder)
	var openErr *storage.OpenError
	if errors.As(err, &openErr) && openErr.Path != "" {
		storePath = openErr.Path
	}
	s.logger.Warn("store is corrupt, deleting it", "solution", solution.ID.String(), "path", storePath, "err", err)
	if rmErr := s.removeAll(storePath); rmErr != nil {
		return nil, fmt.Errorf("delete corrupt store: %w", errors.Join(err, rmErr))
	}

	backend, err = s.opener.Open(ctx, e.workingFolder, solution.FilePath)
	if err != nil {
		s.metrics.openFailures.WithLabelValues(storage.KindOf(err).String()).Inc()
		return nil, err
	}
	s.metrics.corruptRecovered.Inc()
	s.logger.Info("corrupt store recreated", "solution", solution.ID.String(), "path", storePath)
	return backend, nil
}

// claimFolder makes e the owner of its working folder, first waiting for a
// previous owner that is still opening or closing.
func (s *Service) claimFolder(ctx context.Context, e *entry) error {
	for {
		s.mu.Lock()
		owner := s.folders[e.workingFolder]
		if owner == nil || owner == e {
			s.folders[e.workingFolder] = e
			s.mu.Unlock()
			return nil
		}
		if owner.weak != nil && !owner.retired {
			// A live owner belongs to another solution with the same path.
			// Opening will fail on the directory lock, which is the honest answer.
			s.mu.Unlock()
			return nil
		}
		var ready <-chan struct{}
		if owner.weak == nil {
			ready = owner.ready
		}
		released := owner.released
		s.mu.Unlock()

		select {
		case <-ready:
		case <-released:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// lastReleased runs when the last handle to e's backend is released.
func (s *Service) lastReleased(id core.SolutionID, e *entry) {
	s.mu.Lock()
	closeNow := s.retireLocked(id, e)
	s.mu.Unlock()
	if closeNow {
		s.closeInBackground(e, disposeReleased)
	}
}

// retireLocked evicts e and reports whether the caller now owns closing its
// backend. s.mu must be held.
func (s *Service) retireLocked(id core.SolutionID, e *entry) bool {
	if s.entries[id] == e {
		delete(s.entries, id)
	}
	if e.backend == nil || e.retired {
		return false
	}
	e.retired = true
	return true
}

// pinLocked gives a pending primary pin its reference. s.mu must be held.
func (s *Service) pinLocked(id core.SolutionID, ref *refcount.Handle[storage.Backend]) {
	if s.primary != nil && s.primary.id == id && s.primary.handle == nil {
		s.primary.handle = ref.TryAddReference()
	}
}

// unpinLocked takes the pin's reference if id is the primary solution. The
// caller releases it after unlocking. s.mu must be held.
func (s *Service) unpinLocked(id core.SolutionID) *refcount.Handle[storage.Backend] {
	if s.primary == nil || s.primary.id != id {
		return nil
	}
	ref := s.primary.handle
	s.primary.handle = nil
	return ref
}

// closeInBackground closes e's backend on the disposer pool.
func (s *Service) closeInBackground(e *entry, mode string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.closeBackend(e, mode)
		return
	}
	s.background.Add(1)
	s.mu.Unlock()

	task := func() {
		defer s.background.Done()
		s.closeBackend(e, mode)
	}
	if err := s.pool.Submit(task); err != nil {
		s.logger.Warn("disposer pool unavailable, closing inline", "path", e.workingFolder, "err", err)
		task()
	}
}

// reportFault hands an open failure to the fault reporter without blocking
// the caller.
func (s *Service) reportFault(solution *core.Solution, err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.faults.ReportOpenFailure(solution, err)
		return
	}
	s.background.Add(1)
	s.mu.Unlock()

	task := func() {
		defer s.background.Done()
		s.faults.ReportOpenFailure(solution, err)
	}
	if submitErr := s.pool.Submit(task); submitErr != nil {
		task()
	}
}

// closeBackend closes e's backend and frees its working folder.
func (s *Service) closeBackend(e *entry, mode string) {
	if err := e.backend.Close(); err != nil {
		s.logger.Error("error closing store", "path", e.backend.StorePath(), "err", err)
	}
	s.metrics.disposals.WithLabelValues(mode).Inc()
	s.metrics.liveBackends.Dec()

	s.mu.Lock()
	if s.folders[e.workingFolder] == e {
		delete(s.folders, e.workingFolder)
	}
	s.mu.Unlock()
	close(e.released)
	s.logger.Debug("store disposed", "path", e.workingFolder, "mode", mode)
}

// OnWorkingFolderChanging evicts the solution's backend. When the event asks
// for the new location immediately the backend is closed before this returns;
// otherwise it is closed in the background. Handles still held by callers
// keep working until the backend closes and miss afterwards.
func (s *Service) OnWorkingFolderChanging(event location.ChangingEvent) {
	mode := disposeDeferred
	if event.MustUseNewStorageLocationImmediately {
		mode = disposeImmediate
	}
	s.evict(event.SolutionID, mode, event.MustUseNewStorageLocationImmediately)
}

// CloseSolution closes the solution's backend and forgets any earlier open
// failure. Used when the host unloads a solution.
func (s *Service) CloseSolution(id core.SolutionID) {
	s.evict(id, disposeSolution, true)
}

func (s *Service) evict(id core.SolutionID, mode string, synchronous bool) {
	s.mu.Lock()
	delete(s.failed, id)
	pinned := s.unpinLocked(id)
	e := s.entries[id]
	closeNow := false
	if e != nil {
		closeNow = s.retireLocked(id, e)
	}
	s.mu.Unlock()

	if closeNow {
		if synchronous {
			s.closeBackend(e, mode)
		} else {
			s.closeInBackground(e, mode)
		}
	}
	if pinned != nil {
		pinned.Release()
	}
}

// RegisterPrimarySolution keeps the solution's backend open until it is
// unregistered. Only one primary solution may be registered at a time;
// registering a second is a programming error and panics.
func (s *Service) RegisterPrimarySolution(ctx context.Context, solution *core.Solution) {
	if err := core.ValidateSolution(solution); err != nil {
		panic(fmt.Sprintf("lifecycle: register primary solution: %v", err))
	}

	s.mu.Lock()
	if s.primary != nil {
		current := s.primary.id
		s.mu.Unlock()
		panic(fmt.Sprintf("lifecycle: primary solution %s already registered, cannot register %s", current, solution.ID))
	}
	s.primary = &primaryPin{id: solution.ID}
	s.mu.Unlock()

	// The pin takes its own reference when the handle is created.
	s.GetStorage(ctx, solution).Close()
}

// UnregisterPrimarySolution drops the pin taken by RegisterPrimarySolution.
// With synchronous set, a backend left without handles is closed before this
// returns. Unregistering a solution other than the registered one panics.
func (s *Service) UnregisterPrimarySolution(id core.SolutionID, synchronous bool) {
	s.mu.Lock()
	if s.primary == nil {
		s.mu.Unlock()
		return
	}
	if s.primary.id != id {
		current := s.primary.id
		s.mu.Unlock()
		panic(fmt.Sprintf("lifecycle: cannot unregister %s, primary solution is %s", id, current))
	}
	pinned := s.primary.handle
	s.primary = nil
	e := s.entries[id]
	s.mu.Unlock()

	if pinned == nil {
		return
	}
	pinned.Release()

	if synchronous && e != nil {
		s.mu.Lock()
		retired := e.retired
		s.mu.Unlock()
		if retired {
			<-e.released
		}
	}
}

// Len returns the number of solutions with a cached or opening backend.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close closes every cached backend and waits for opens in flight and
// background disposals.
// Storage requested afterwards is storage.NoOp. Safe to call more than once.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true

	var pinned *refcount.Handle[storage.Backend]
	if s.primary != nil {
		pinned = s.primary.handle
		s.primary = nil
	}
	var toClose []*entry
	for id, e := range s.entries {
		if s.retireLocked(id, e) {
			toClose = append(toClose, e)
		}
	}
	s.mu.Unlock()

	for _, e := range toClose {
		s.closeBackend(e, disposeShutdown)
	}
	if pinned != nil {
		pinned.Release()
	}

	s.background.Wait()
	s.pool.Release()
	s.logger.Debug("storage lifecycle service closed")
	return nil
}

func (s *Service) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Service) noop(result string) storage.Storage {
	s.metrics.requests.WithLabelValues(result).Inc()
	return storage.NoOp{}
}
