// Copyright 2020 Nathan Taylor (nbtaylor@gmail.com)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package intrusive implements the following family of lock-free containers,
// called "intrusive" because the per-element link fields live inside the
// element itself rather than in a container-owned node wrapper:
//
// Consider a run queue shared between an arbitrary number of producer
// goroutines (including interrupt-context callers, in the kernel this
// package was ported from) and a single consumer that periodically drains
// it. A conventional channel or container/list-backed queue allocates a
// node per push and must mutate a doubly-linked structure under a lock. A
// [TransferStack] instead requires the element type to carry its own next
// pointer (a [Links] field), so pushing costs one CAS loop and no
// allocation, and draining costs one atomic swap.
//
// ## Overview
//
// [TransferStack] is the concurrent, producer-facing half: any number of
// goroutines may [TransferStack.Push] concurrently, and it is wait-free for
// the single consumer to [TransferStack.TakeAll] the entire chain at once.
// [Stack] is the detached, single-owner half returned by TakeAll: a plain
// LIFO that the consumer pops or iterates to completion without further
// synchronization.
//
// Elements participate by implementing [Linked], projecting to an embedded
// [Links] field. An element must never be pushed onto two stacks
// concurrently, and its address must stay stable from the moment it is
// pushed until it is popped back out — see [Linked] for the full contract.
package intrusive

import "go.uber.org/atomic"

// Linked is implemented by the pointer type of any element that wishes to
// participate in a [TransferStack] or [Stack].
//
// Implementations must return a pointer to the same [Links] instance on
// every call (typically an embedded field), and the caller must guarantee
// that the element's address is stable for as long as it remains linked
// into a stack: from the moment it is handed to [TransferStack.Push] or
// [Stack.Push] until it is returned by [TransferStack.TakeAll]'s resulting
// [Stack], [Stack.Pop], or [Stack.Each].
type Linked[T any] interface {
	Links() *Links[T]
}

// Links is the embeddable per-element link field. An element that embeds
// Links and implements [Linked] may be pushed onto a [TransferStack] or
// [Stack].
//
// The zero value has next == nil, satisfying the "not currently in any
// stack" invariant; Links must never be copied once an element carrying it
// has been linked into a stack.
type Links[T any] struct {
	next atomic.Pointer[T]
}

// linked reports whether next is non-nil, i.e. whether the owning element
// currently believes itself to be part of some chain.
func (l *Links[T]) linked() bool {
	return l.next.Load() != nil
}
