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

// Package sizegate decides whether a solution is large enough for persistent
// storage to pay for itself.
//
// Small solutions are cheap to recompute, so keeping an on-disk store for them
// costs more than it saves. The Gate compares a size reported by a Tracker
// against a threshold. Solutions running in the remote workspace always use
// storage.
package sizegate
