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

// Package refcount provides shared ownership of a single expensive resource.
//
// A Handle is one owner's claim on the resource. New creates the first claim,
// TryAddReference creates more, and Release gives one up. When the last claim
// is released the dispose function runs exactly once, on the goroutine that
// released it. Once that happens no new claims can be made: TryAddReference
// returns nil and the caller is expected to create a fresh resource.
//
// A Weak reference observes the resource without keeping it alive. Caches hold
// Weak references so that the resource is released as soon as the last real
// user is done with it.
//
// All operations are lock-free and safe for concurrent use.
package refcount
