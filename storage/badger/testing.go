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
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// OpenMemoryBackend opens a store that lives only in memory. Useful for tests.
func OpenMemoryBackend() (*Backend, error) {
	logger := slog.Default()
	db, err := badger.Open(badgerOptions("", true, false, logger))
	if err != nil {
		return nil, err
	}
	backend := &Backend{db: db, logger: logger, maxBlobSize: MaxMemoryBlobSize}
	if err := backend.checkManifest("", false); err != nil {
		backend.Close()
		return nil, err
	}
	return backend, nil
}
