package lifecycle

import (
	"context"
	"io"

	"github.com/poiesic/solstore/core"
	"github.com/poiesic/solstore/refcount"
	"github.com/poiesic/solstore/storage"
)

// storageHandle is the caller's reference to a shared backend. Closing it
// releases the reference; operations after Close miss.
type storageHandle struct {
	ref *refcount.Handle[storage.Backend]
}

var _ storage.Storage = (*storageHandle)(nil)

func (h *storageHandle) ReadStream(ctx context.Context, scope storage.Scope, name string, checksum core.Checksum) (io.ReadCloser, bool) {
	if h.ref.Released() {
		return nil, false
	}
	return h.ref.Target().ReadStream(ctx, scope, name, checksum)
}

func (h *storageHandle) WriteStream(ctx context.Context, scope storage.Scope, name string, r io.Reader, checksum core.Checksum) bool {
	if h.ref.Released() {
		return false
	}
	return h.ref.Target().WriteStream(ctx, scope, name, r, checksum)
}

func (h *storageHandle) ChecksumMatches(ctx context.Context, scope storage.Scope, name string, checksum core.Checksum) bool {
	if h.ref.Released() {
		return false
	}
	return h.ref.Target().ChecksumMatches(ctx, scope, name, checksum)
}

// Close releases the reference. The backend closes once every handle is closed.
func (h *storageHandle) Close() error {
	h.ref.Release()
	return nil
}
