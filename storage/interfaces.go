package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/poiesic/solstore/core"
)

// Storage is the handle callers use to persist data for a solution.
// Implementations must be thread-safe and support concurrent access.
type Storage interface {
	// ReadStream returns the blob stored under scope and name.
	// Returns false when the blob is absent, its stored checksum does not match
	// a non-empty checksum, the store is unavailable, or ctx is done.
	// The caller must close the returned reader.
	ReadStream(ctx context.Context, scope Scope, name string, checksum core.Checksum) (io.ReadCloser, bool)

	// WriteStream stores everything read from r under scope and name, together
	// with checksum (which may be empty). Returns false when nothing was written.
	WriteStream(ctx context.Context, scope Scope, name string, r io.Reader, checksum core.Checksum) bool

	// ChecksumMatches reports whether a blob exists under scope and name and was
	// written with exactly this checksum.
	ChecksumMatches(ctx context.Context, scope Scope, name string, checksum core.Checksum) bool

	// Close releases the caller's claim on the storage. Calling it more than
	// once is harmless.
	Close() error
}

// Backend is one opened physical store bound to a working folder.
type Backend interface {
	Storage

	// WorkingFolder returns the folder the store was opened in.
	WorkingFolder() string

	// StorePath returns the directory holding the store's files.
	StorePath() string

	// IsClosed reports whether Close has been called.
	IsClosed() bool
}

// Opener opens backends.
type Opener interface {
	// Open opens or creates the store for solutionPath inside workingFolder.
	// Failures are returned as *OpenError.
	Open(ctx context.Context, workingFolder, solutionPath string) (Backend, error)
}

// OpenErrorKind classifies why a store could not be opened.
type OpenErrorKind int

const (
	// OpenFailed covers failures that deleting the store would not fix.
	OpenFailed OpenErrorKind = iota
	// AccessDenied means another process or handle owns the store.
	AccessDenied
	// Corrupt means the store exists but failed validation.
	Corrupt
)

// String returns the string representation of the kind.
func (k OpenErrorKind) String() string {
	switch k {
	case OpenFailed:
		return "open_failed"
	case AccessDenied:
		return "access_denied"
	case Corrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// OpenError is returned by Opener implementations.
type OpenError struct {
	Kind OpenErrorKind
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open store %s (%s): %v", e.Path, e.Kind, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// KindOf returns the OpenErrorKind carried by err, or OpenFailed when err is
// not an *OpenError.
func KindOf(err error) OpenErrorKind {
	var openErr *OpenError
	if errors.As(err, &openErr) {
		return openErr.Kind
	}
	return OpenFailed
}
