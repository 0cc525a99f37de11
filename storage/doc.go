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

// Package storage defines the persistent storage contract for solstore.
//
// Storage is what callers hold: a byte store keyed by scope and name that may
// or may not actually persist anything. Callers never branch on whether
// persistence is available; they read, write and Close.
//
// # Scopes
//
// Every blob lives in a scope:
//
//   - SolutionScope(): solution-wide data
//   - ProjectScope(p): data belonging to one project
//   - DocumentScope(p, d): data belonging to one document of a project
//
// Names are free-form, non-empty strings unique within a scope.
//
// # Backends
//
// A Backend is one opened physical store bound to a working folder. Backends
// are produced by an Opener, which reports failures as *OpenError values whose
// Kind drives the recovery policy of the caller:
//
//	backend, err := opener.Open(ctx, folder, solutionPath)
//	var openErr *storage.OpenError
//	if errors.As(err, &openErr) && openErr.Kind == storage.Corrupt {
//	    // delete the store directory and try once more
//	}
//
// # Soft failure
//
// Storage is an optimization. Reads report "not found" and writes report
// "not written" instead of returning errors; the caller recomputes what it
// could not load. NoOp is the null implementation used whenever real
// persistence is unavailable.
//
// # Thread Safety
//
// All implementations must be safe for concurrent use from multiple goroutines.
//
// # Context Support
//
// Read and write operations accept a context.Context. A context that is already
// cancelled turns the operation into a miss. Close never takes a context: it
// always runs to completion.
package storage
