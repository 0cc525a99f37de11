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

package badger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/solstore/core"
	"github.com/poiesic/solstore/storage"
)

// Opener opens BadgerDB-backed stores. The zero value is ready to use.
type Opener struct {
	// Logger receives backend and badger logs. Defaults to slog.Default().
	Logger *slog.Logger

	// SyncWrites makes every commit durable before it returns.
	SyncWrites bool

	// InMemory keeps stores in memory. The working folder is still created so
	// callers observe the same layout. In-memory stores reject blobs larger
	// than MaxMemoryBlobSize.
	InMemory bool
}

var _ storage.Opener = (*Opener)(nil)

// Open opens or creates the store for solutionPath inside workingFolder.
// Creates the working folder if it doesn't exist.
func (o *Opener) Open(ctx context.Context, workingFolder, solutionPath string) (storage.Backend, error) {
	return o.open(ctx, workingFolder, solutionPath)
}

func (o *Opener) open(ctx context.Context, workingFolder, solutionPath string) (*Backend, error) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	storePath := storage.StoreDirectory(workingFolder)

	if err := ctx.Err(); err != nil {
		return nil, &storage.OpenError{Kind: storage.OpenFailed, Path: storePath, Err: err}
	}

	// Ensure working folder exists
	if err := ensureDirectory(workingFolder); err != nil {
		return nil, &storage.OpenError{Kind: classifyOpenError(err, false), Path: storePath, Err: err}
	}
	existed := !o.InMemory && hasEntries(storePath)

	db, err := badger.Open(badgerOptions(storePath, o.InMemory, o.SyncWrites, logger))
	if err != nil {
		return nil, &storage.OpenError{Kind: classifyOpenError(err, existed), Path: storePath, Err: err}
	}

	backend := &Backend{
		db:            db,
		workingFolder: workingFolder,
		storePath:     storePath,
		logger:        logger,
	}
	if o.InMemory {
		backend.maxBlobSize = MaxMemoryBlobSize
	}
	if err := backend.checkManifest(solutionPath, existed); err != nil {
		backend.Close()
		return nil, &storage.OpenError{Kind: storage.Corrupt, Path: storePath, Err: err}
	}

	logger.Debug("store opened", "path", storePath, "existed", existed)
	return backend, nil
}

// checkManifest validates the manifest of an existing store, or writes one
// into a new store. A store with files but no manifest is corrupt.
func (b *Backend) checkManifest(solutionPath string, existed bool) error {
	var manifest *core.Manifest
	err := b.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(manifestKey))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			manifest, unmarshalErr = storage.UnmarshalManifest(val)
			return unmarshalErr
		})
	}, false)
	if err != nil {
		return err
	}

	if manifest != nil {
		return core.ValidateManifest(manifest)
	}
	if existed {
		return fmt.Errorf("%w: missing", core.ErrInvalidManifest)
	}
	return b.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set([]byte(manifestKey), storage.MarshalManifest(core.NewManifest(solutionPath))); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Manifest returns the manifest the store was created with.
func (b *Backend) Manifest() (*core.Manifest, error) {
	var manifest *core.Manifest
	err := b.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(manifestKey))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			manifest, unmarshalErr = storage.UnmarshalManifest(val)
			return unmarshalErr
		})
	}, false)
	return manifest, err
}

func ensureDirectory(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return err
		}
		return nil
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

// hasEntries reports whether path is a directory with at least one entry.
func hasEntries(path string) bool {
	entries, err := os.ReadDir(path)
	return err == nil && len(entries) > 0
}

// classifyOpenError maps an open failure onto the recovery policy. badger
// flattens wrapped errors into strings, so the lock failure is recognised by
// its message.
func classifyOpenError(err error, existed bool) storage.OpenErrorKind {
	msg := err.Error()
	switch {
	case errors.Is(err, fs.ErrPermission),
		strings.Contains(msg, "Cannot acquire directory lock"),
		strings.Contains(msg, "permission denied"):
		return storage.AccessDenied
	case existed:
		return storage.Corrupt
	default:
		return storage.OpenFailed
	}
}
