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
	"context"
	"io"

	"github.com/poiesic/solstore/core"
)

// NoOp is a Storage that persists nothing. Reads miss, writes are dropped and
// Close does nothing. The zero value is ready to use.
type NoOp struct{}

var _ Storage = NoOp{}

func (NoOp) ReadStream(_ context.Context, _ Scope, _ string, _ core.Checksum) (io.ReadCloser, bool) {
	return nil, false
}

func (NoOp) WriteStream(_ context.Context, _ Scope, _ string, _ io.Reader, _ core.Checksum) bool {
	return false
}

func (NoOp) ChecksumMatches(_ context.Context, _ Scope, _ string, _ core.Checksum) bool {
	return false
}

func (NoOp) Close() error { return nil }

// IsNoOp reports whether s is the no-op storage.
func IsNoOp(s Storage) bool {
	_, ok := s.(NoOp)
	return ok
}
