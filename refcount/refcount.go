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

package refcount

import (
	"sync/atomic"
)

// disposed marks a box whose count has dropped to zero. It is terminal.
const disposed = -1

// box is the state shared by every handle to the same target.
type box[T any] struct {
	target  T
	count   atomic.Int64
	dispose func(T)
}

// tryAcquire increments the count unless the target was already disposed.
func (b *box[T]) tryAcquire() bool {
	for {
		n := b.count.Load()
		if n <= 0 {
			return false
		}
		if b.count.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// release decrements the count. The caller that moves it from 1 to zero
// disposes the target.
func (b *box[T]) release() {
	for {
		n := b.count.Load()
		if n <= 0 {
			// Only reachable through a bug in Handle bookkeeping.
			panic("refcount: release of disposed target")
		}
		next := n - 1
		if next == 0 {
			next = disposed
		}
		if b.count.CompareAndSwap(n, next) {
			if next == disposed && b.dispose != nil {
				b.dispose(b.target)
			}
			return
		}
	}
}

// Handle is one counted reference to a shared target.
type Handle[T any] struct {
	box      *box[T]
	released atomic.Bool
}

// New wraps target with a count of one and returns the first handle.
// dispose runs once, when the last handle is released. It may be nil.
func New[T any](target T, dispose func(T)) *Handle[T] {
	b := &box[T]{target: target, dispose: dispose}
	b.count.Store(1)
	return &Handle[T]{box: b}
}

// Target returns the shared target. It remains valid to call after Release,
// but the target may have been disposed by then.
func (h *Handle[T]) Target() T {
	return h.box.target
}

// TryAddReference returns a new handle to the same target, or nil if the
// target has already been disposed. Calling it on a released handle also
// returns nil.
func (h *Handle[T]) TryAddReference() *Handle[T] {
	if h.released.Load() {
		return nil
	}
	if !h.box.tryAcquire() {
		return nil
	}
	return &Handle[T]{box: h.box}
}

// Release gives up this handle's reference. Releasing a handle more than once
// has no further effect.
func (h *Handle[T]) Release() {
	if !h.released.CompareAndSwap(false, true) {
		return
	}
	h.box.release()
}

// Released reports whether Release has been called on this handle.
func (h *Handle[T]) Released() bool {
	return h.released.Load()
}

// Count returns the number of live references, or zero once disposed.
func (h *Handle[T]) Count() int64 {
	n := h.box.count.Load()
	if n < 0 {
		return 0
	}
	return n
}

// Weak returns a reference that does not keep the target alive.
func (h *Handle[T]) Weak() *Weak[T] {
	return &Weak[T]{box: h.box}
}

// Weak observes a target without owning a count.
type Weak[T any] struct {
	box *box[T]
}

// TryAddReference returns a new owning handle, or nil if the target has
// already been disposed.
func (w *Weak[T]) TryAddReference() *Handle[T] {
	if !w.box.tryAcquire() {
		return nil
	}
	return &Handle[T]{box: w.box}
}

// Target returns the observed target without acquiring it.
func (w *Weak[T]) Target() T {
	return w.box.target
}

// Alive reports whether the target has not been disposed yet. The answer may
// be stale by the time the caller acts on it.
func (w *Weak[T]) Alive() bool {
	return w.box.count.Load() > 0
}
