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

package storage

import (
	"fmt"
	"path/filepath"

	"github.com/poiesic/solstore/core"
)

// storeDirName is the directory inside a working folder holding the store.
const storeDirName = "storage.badger"

// StoreDirectory returns the directory of the store inside workingFolder.
func StoreDirectory(workingFolder string) string {
	return filepath.Join(workingFolder, storeDirName)
}

// MarshalManifest serializes a Manifest to bytes.
func MarshalManifest(m *core.Manifest) []byte {
	buf := make([]byte, core.ManifestMUS.Size(*m))
	core.ManifestMUS.Marshal(*m, buf)
	return buf
}

// UnmarshalManifest deserializes a Manifest from bytes.
func UnmarshalManifest(data []byte) (*core.Manifest, error) {
	m, _, err := core.ManifestMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &m, nil
}

// MarshalBlob serializes a Blob to bytes.
func MarshalBlob(b *core.Blob) []byte {
	buf := make([]byte, core.BlobMUS.Size(*b))
	core.BlobMUS.Marshal(*b, buf)
	return buf
}

// UnmarshalBlob deserializes a Blob from bytes.
func UnmarshalBlob(data []byte) (*core.Blob, error) {
	b, _, err := core.BlobMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &b, nil
}
