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

package location

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/poiesic/solstore/core"
)

// ChangingEvent announces that a solution's working folder is about to change.
type ChangingEvent struct {
	SolutionID core.SolutionID

	// MustUseNewStorageLocationImmediately asks listeners to release the old
	// location before returning from the handler.
	MustUseNewStorageLocationImmediately bool
}

// Service supplies working folders and raises changing events.
type Service interface {
	// WorkingFolder returns the folder the solution's store lives in, or
	// false when the solution has no persistent location.
	WorkingFolder(solution *core.Solution) (string, bool)

	// Subscribe registers fn for changing events. The returned function
	// removes the subscription.
	Subscribe(fn func(ChangingEvent)) func()
}

// RootService places every solution in its own folder under a root directory.
type RootService struct {
	mu      sync.Mutex
	root    string
	known   map[core.SolutionID]struct{}
	subs    map[int]func(ChangingEvent)
	nextSub int
	logger  *slog.Logger
}

var _ Service = (*RootService)(nil)

// NewRootService creates a service rooted at root. An empty root disables
// persistent locations.
func NewRootService(root string, logger *slog.Logger) *RootService {
	if logger == nil {
		logger = slog.Default()
	}
	if root != "" {
		root = filepath.Clean(root)
	}
	return &RootService{
		root:   root,
		known:  make(map[core.SolutionID]struct{}),
		subs:   make(map[int]func(ChangingEvent)),
		logger: logger,
	}
}

// Root returns the current root directory.
func (s *RootService) Root() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// WorkingFolder implements Service.
func (s *RootService) WorkingFolder(solution *core.Solution) (string, bool) {
	if solution == nil || solution.FilePath == "" {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root == "" {
		return "", false
	}
	s.known[solution.ID] = struct{}{}
	return filepath.Join(s.root, core.FolderNameFor(solution.FilePath)), true
}

// Subscribe implements Service.
func (s *RootService) Subscribe(fn func(ChangingEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// SetRoot moves every solution to a new root and raises a changing event for
// each solution that has asked for a location.
func (s *RootService) SetRoot(root string, immediate bool) {
	if root != "" {
		root = filepath.Clean(root)
	}
	s.mu.Lock()
	if root == s.root {
		s.mu.Unlock()
		return
	}
	s.logger.Info("storage root changing", "from", s.root, "to", root, "immediate", immediate)
	s.root = root
	s.mu.Unlock()

	s.InvalidateAll(immediate)
}

// Invalidate raises a changing event for one solution.
func (s *RootService) Invalidate(id core.SolutionID, immediate bool) {
	s.notify([]core.SolutionID{id}, immediate)
}

// InvalidateAll raises a changing event for every solution that has asked for
// a location.
func (s *RootService) InvalidateAll(immediate bool) {
	s.mu.Lock()
	ids := make([]core.SolutionID, 0, len(s.known))
	for id := range s.known {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	s.notify(ids, immediate)
}

// notify runs handlers without holding the lock so they may call back into
// the service.
func (s *RootService) notify(ids []core.SolutionID, immediate bool) {
	s.mu.Lock()
	handlers := make([]func(ChangingEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		handlers = append(handlers, fn)
	}
	s.mu.Unlock()

	for _, id := range ids {
		event := ChangingEvent{SolutionID: id, MustUseNewStorageLocationImmediately: immediate}
		for _, fn := range handlers {
			fn(event)
		}
	}
}
