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

package solstore

import (
	"context"
	"log/slog"
	"os"

	"github.com/poiesic/solstore/core"
	"github.com/poiesic/solstore/lifecycle"
	"github.com/poiesic/solstore/location"
	"github.com/poiesic/solstore/sizegate"
	"github.com/poiesic/solstore/storage"
	"github.com/poiesic/solstore/storage/badger"
	"github.com/prometheus/client_golang/prometheus"
)

// Host wires the storage subsystem together: locations under a root, a size
// gate, BadgerDB stores and the lifecycle service.
type Host struct {
	cfg         *Config
	location    *location.RootService
	dirTracker  *sizegate.DirTracker
	gate        *sizegate.Gate
	service     *lifecycle.Service
	watcher     *location.Watcher
	registry    *prometheus.Registry
	unsubscribe func()
	logger      *slog.Logger
}

// HostOption configures a Host.
type HostOption func(*hostOptions)

type hostOptions struct {
	logger   *slog.Logger
	registry *prometheus.Registry
	tracker  sizegate.Tracker
	faults   lifecycle.FaultReporter
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) HostOption {
	return func(o *hostOptions) {
		o.logger = logger
	}
}

// WithRegistry sets the registry metrics are registered with.
func WithRegistry(registry *prometheus.Registry) HostOption {
	return func(o *hostOptions) {
		o.registry = registry
	}
}

// WithTracker replaces the directory-walking size tracker.
func WithTracker(tracker sizegate.Tracker) HostOption {
	return func(o *hostOptions) {
		o.tracker = tracker
	}
}

// WithFaultReporter sets where store open failures are reported.
func WithFaultReporter(reporter lifecycle.FaultReporter) HostOption {
	return func(o *hostOptions) {
		o.faults = reporter
	}
}

// NewHost builds a Host from cfg. A nil cfg uses DefaultConfig.
func NewHost(cfg *Config, opts ...HostOption) (*Host, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &hostOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.registry == nil {
		options.registry = prometheus.NewRegistry()
	}
	logger := options.logger

	if err := os.MkdirAll(cfg.Root, 0755); err != nil {
		return nil, err
	}
	h := &Host{
		cfg:      cfg,
		location: location.NewRootService(cfg.Root, logger),
		registry: options.registry,
		logger:   logger,
	}

	// Size gate
	tracker := options.tracker
	if tracker == nil {
		dirTracker, err := sizegate.NewDirTracker(0, logger)
		if err != nil {
			return nil, err
		}
		h.dirTracker = dirTracker
		tracker = dirTracker
	}
	gate, err := sizegate.New(tracker, sizegate.WithThreshold(cfg.SizeThreshold), sizegate.WithLogger(logger))
	if err != nil {
		h.Close()
		return nil, err
	}
	h.gate = gate

	// Lifecycle service
	serviceOpts := []lifecycle.Option{
		lifecycle.WithLogger(logger),
		lifecycle.WithDisposerPoolSize(cfg.DisposerPoolSize),
		lifecycle.WithMetrics(lifecycle.NewMetrics(options.registry)),
	}
	if options.faults != nil {
		serviceOpts = append(serviceOpts, lifecycle.WithFaultReporter(options.faults))
	}
	opener := &badger.Opener{Logger: logger, SyncWrites: cfg.SyncWrites, InMemory: cfg.InMemory}
	h.service, err = lifecycle.New(h.location, gate, opener, serviceOpts...)
	if err != nil {
		h.Close()
		return nil, err
	}
	h.unsubscribe = h.location.Subscribe(h.service.OnWorkingFolderChanging)

	// Root watcher
	if cfg.WatchRoot {
		h.watcher, err = location.NewWatcher(h.location, logger)
		if err == nil {
			err = h.watcher.Start(context.Background())
		}
		if err != nil {
			h.Close()
			return nil, err
		}
	}

	logger.Debug("storage host ready", "root", cfg.Root, "threshold", cfg.SizeThreshold)
	return h, nil
}

// Storage returns storage for solution. See lifecycle.Service.GetStorage.
func (h *Host) Storage(ctx context.Context, solution *core.Solution) storage.Storage {
	return h.service.GetStorage(ctx, h.effective(solution))
}

// Eligible reports whether the solution passes the size gate, without
// opening its store.
func (h *Host) Eligible(ctx context.Context, solution *core.Solution) bool {
	return h.gate.ShouldUseStorage(ctx, h.effective(solution))
}

func (h *Host) effective(solution *core.Solution) *core.Solution {
	if h.cfg.Remote && solution != nil && solution.WorkspaceKind != core.WorkspaceKindRemote {
		remote := *solution
		remote.WorkspaceKind = core.WorkspaceKindRemote
		return &remote
	}
	return solution
}

// Service returns the lifecycle service.
func (h *Host) Service() *lifecycle.Service {
	return h.service
}

// Location returns the location service.
func (h *Host) Location() *location.RootService {
	return h.location
}

// Registry returns the registry holding the host's metrics.
func (h *Host) Registry() *prometheus.Registry {
	return h.registry
}

// Config returns the validated configuration.
func (h *Host) Config() *Config {
	return h.cfg
}

// Close shuts the host down, closing every open store.
func (h *Host) Close() error {
	var firstErr error

	// Stop watching first so no events arrive during shutdown
	if h.watcher != nil {
		if err := h.watcher.Close(); err != nil {
			h.logger.Error("error closing root watcher", "err", err)
			firstErr = err
		}
	}
	if h.unsubscribe != nil {
		h.unsubscribe()
	}

	// Close stores
	if h.service != nil {
		if err := h.service.Close(); err != nil {
			h.logger.Error("error closing lifecycle service", "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if h.dirTracker != nil {
		h.dirTracker.Close()
	}
	return firstErr
}
