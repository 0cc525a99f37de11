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

package sizegate

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/solstore/core"
)

// DefaultThreshold is the size a solution must reach before it gets a store.
const DefaultThreshold int64 = 50 << 20

// ErrInvalidThreshold is returned for negative thresholds.
var ErrInvalidThreshold = errors.New("size threshold must not be negative")

// Tracker reports an approximate size in bytes for a solution.
type Tracker interface {
	// SolutionSize returns false when no metric is available yet.
	SolutionSize(ctx context.Context, solution *core.Solution) (int64, bool)
}

// Gate decides whether a solution should use persistent storage.
type Gate struct {
	tracker   Tracker
	threshold int64
	logger    *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate) error

// WithThreshold overrides DefaultThreshold.
func WithThreshold(threshold int64) Option {
	return func(g *Gate) error {
		if threshold < 0 {
			return ErrInvalidThreshold
		}
		g.threshold = threshold
		return nil
	}
}

// WithLogger sets the logger used for gate decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) error {
		g.logger = logger
		return nil
	}
}

// New creates a Gate. A nil tracker is allowed; such a gate only admits
// remote solutions.
func New(tracker Tracker, opts ...Option) (*Gate, error) {
	g := &Gate{
		tracker:   tracker,
		threshold: DefaultThreshold,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Threshold returns the configured threshold in bytes.
func (g *Gate) Threshold() int64 {
	return g.threshold
}

// ShouldUseStorage reports whether solution is eligible for persistent storage.
func (g *Gate) ShouldUseStorage(ctx context.Context, solution *core.Solution) bool {
	if solution == nil {
		return false
	}
	if solution.WorkspaceKind == core.WorkspaceKindRemote {
		return true
	}
	if g.tracker == nil {
		return false
	}
	size, ok := g.tracker.SolutionSize(ctx, solution)
	if !ok {
		g.logger.Debug("no size metric for solution", "solution", solution.ID.String())
		return false
	}
	return size >= g.threshold
}
