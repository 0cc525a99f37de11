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

import "errors"

var (
	// ErrNotFound indicates that the requested blob was not found.
	ErrNotFound = errors.New("blob not found")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidName indicates an empty blob name.
	ErrInvalidName = errors.New("blob name cannot be empty")

	// ErrBlobTooLarge indicates a blob over the store's size limit.
	ErrBlobTooLarge = errors.New("blob too large")

	// ErrInvalidScope indicates a scope with an unknown kind.
	ErrInvalidScope = errors.New("invalid storage scope")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")
)
