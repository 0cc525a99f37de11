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

// Package lifecycle hands out solution storage and decides when stores are
// opened and closed.
//
// A Service keeps at most one open backend per solution. Callers receive a
// reference-counted handle; when the last handle for a backend is closed the
// backend is closed on a background worker pool. Location changes evict the
// cached backend, either closing it before the event handler returns or in
// the background. Every failure degrades to storage.NoOp, so callers never
// need to check whether storage is available.
package lifecycle
