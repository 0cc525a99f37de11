package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/solstore/core"
	"github.com/poiesic/solstore/storage"
)

const (
	defaultMemTableSize = 16 << 20
	memoryMemTableSize  = 64 << 20

	// MaxMemoryBlobSize is the largest blob an in-memory store accepts.
	// Everything an in-memory store holds lives in its memtables, so a
	// single commit must fit in badger's batch limit of 15% of a memtable.
	MaxMemoryBlobSize = 8 << 20
)

// Backend wraps a BadgerDB instance bound to one solution's working folder.
type Backend struct {
	db            *badger.DB
	workingFolder string
	storePath     string
	logger        *slog.Logger
	maxBlobSize   int64 // zero means unlimited

	// mu is held for reading by every operation and for writing by Close, so
	// Close waits for in-flight reads and writes.
	mu     sync.RWMutex
	closed bool
}

var _ storage.Backend = (*Backend)(nil)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// badgerOptions builds the badger options for a store directory.
func badgerOptions(storePath string, inMemory, syncWrites bool, logger *slog.Logger) badger.Options {
	var opts badger.Options
	memTableSize := int64(defaultMemTableSize)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
		memTableSize = memoryMemTableSize
	} else {
		opts = badger.DefaultOptions(storePath)
	}
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None
	return opts.
		WithSyncWrites(syncWrites).
		WithNumVersionsToKeep(1).
		WithMemTableSize(memTableSize)
}

// Close flushes and closes the BadgerDB database. It waits for in-flight
// operations and is safe to call more than once.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if err := b.db.Close(); err != nil {
		b.logger.Error("error closing store", "path", b.storePath, "err", err)
		return err
	}
	b.logger.Debug("store closed", "path", b.storePath)
	return nil
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

// WorkingFolder returns the folder the store was opened in.
func (b *Backend) WorkingFolder() string {
	return b.workingFolder
}

// StorePath returns the directory holding the store's files.
func (b *Backend) StorePath() string {
	return b.storePath
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded if fn returns an error.
// Returns storage.ErrStorageClosed once the backend has been closed.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return storage.ErrStorageClosed
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// ReadStream returns the blob stored under scope and name.
func (b *Backend) ReadStream(ctx context.Context, scope storage.Scope, name string, checksum core.Checksum) (io.ReadCloser, bool) {
	blob, err := b.readBlob(ctx, scope, name)
	if err != nil {
		b.logMiss("read", scope, name, err)
		return nil, false
	}
	if len(checksum) > 0 && !bytes.Equal(checksum, blob.Checksum) {
		return nil, false
	}
	return io.NopCloser(bytes.NewReader(blob.Data)), true
}

// ChecksumMatches reports whether the blob under scope and name was written
// with checksum.
func (b *Backend) ChecksumMatches(ctx context.Context, scope storage.Scope, name string, checksum core.Checksum) bool {
	blob, err := b.readBlob(ctx, scope, name)
	if err != nil {
		b.logMiss("checksum", scope, name, err)
		return false
	}
	return bytes.Equal(checksum, blob.Checksum)
}

// WriteStream stores the contents of r under scope and name.
func (b *Backend) WriteStream(ctx context.Context, scope storage.Scope, name string, r io.Reader, checksum core.Checksum) bool {
	if err := validateKey(ctx, scope, name); err != nil {
		b.logMiss("write", scope, name, err)
		return false
	}
	if b.maxBlobSize > 0 {
		r = io.LimitReader(r, b.maxBlobSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		b.logger.Warn("error reading blob contents", "scope", scope.String(), "name", name, "err", err)
		return false
	}
	if b.maxBlobSize > 0 && int64(len(data)) > b.maxBlobSize {
		b.logMiss("write", scope, name, fmt.Errorf("%w: limit is %d bytes", storage.ErrBlobTooLarge, b.maxBlobSize))
		return false
	}

	err = b.WithTx(func(tx *badger.Txn) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := makeBlobKey(scope, name)
		value := storage.MarshalBlob(&core.Blob{Checksum: checksum, Data: data})
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		b.logMiss("write", scope, name, err)
		return false
	}
	return true
}

func (b *Backend) readBlob(ctx context.Context, scope storage.Scope, name string) (*core.Blob, error) {
	if err := validateKey(ctx, scope, name); err != nil {
		return nil, err
	}

	var blob *core.Blob
	err := b.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeBlobKey(scope, name))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			blob, unmarshalErr = storage.UnmarshalBlob(val)
			return unmarshalErr
		})
	}, false)

	return blob, err
}

// logMiss records why an operation degraded to a miss. Plain misses are not
// interesting enough to log.
func (b *Backend) logMiss(op string, scope storage.Scope, name string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, storage.ErrStorageClosed) {
		b.logger.Debug("storage operation skipped", "op", op, "scope", scope.String(), "name", name, "err", err)
		return
	}
	b.logger.Warn("storage operation failed", "op", op, "scope", scope.String(), "name", name, "err", err)
}

func validateKey(ctx context.Context, scope storage.Scope, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return storage.ErrInvalidName
	}
	return scope.Validate()
}
