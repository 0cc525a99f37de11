package badger

import (
	"github.com/poiesic/solstore/storage"
)

// Key prefixes for different data types
const (
	blobPrefix  = "blob:"
	manifestKey = "meta:manifest"
)

// makeBlobKey generates a composite key for a blob.
// Format: prefix, scope key (kind byte + ids), name
func makeBlobKey(scope storage.Scope, name string) []byte {
	totalSize := len(blobPrefix) + 1 + 32 + len(name)
	buf := make([]byte, 0, totalSize)
	buf = append(buf, blobPrefix...)
	buf = scope.AppendKey(buf)
	buf = append(buf, name...)
	return buf
}
