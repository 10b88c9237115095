package intrusive

import "go.uber.org/atomic"

// TransferStack is a lock-free, intrusive, multi-producer/single-consumer
// stack: any number of goroutines (or interrupt handlers, in the kernel
// this package was ported from) may [TransferStack.Push] concurrently, and
// a single consumer may [TransferStack.TakeAll] the whole chain in one
// wait-free atomic swap.
//
// A transfer stack is perhaps the world's simplest lock-free concurrent
// data structure: it holds nothing but a single atomic head pointer. The
// element type's pointer, PT, must implement [Linked][T].
//
// The zero value is an empty, ready-to-use TransferStack.
type TransferStack[T any, PT interface {
	*T
	Linked[T]
}] struct {
	head atomic.Pointer[T]
}

// Push transfers ownership of v into the stack. It never blocks forever
// (the CAS loop always has some goroutine making progress), but an
// individual caller may retry an unbounded number of times under
// contention — lock-free, not wait-free.
//
// v must not currently be linked into any other stack.
func (s *TransferStack[T, PT]) Push(v PT) {
	for {
		head := s.head.Load()
		// Write next before the CAS that publishes v: on success, the
		// CAS's release-equivalent ordering (sync/atomic's CompareAndSwap
		// synchronizes-before any later TakeAll that observes it) makes
		// this write visible to the consumer along with v's payload.
		PT(v).Links().next.Store(head)
		if s.head.CompareAndSwap(head, (*T)(v)) {
			return
		}
		// Lost the race: reload head and retry.
	}
}

// TakeAll atomically detaches the entire chain currently in the stack and
// returns it as a freshly owned [Stack], leaving the TransferStack empty.
//
// TakeAll is wait-free: it is a single atomic swap, independent of how many
// elements are linked or how many producers are concurrently pushing.
func (s *TransferStack[T, PT]) TakeAll() *Stack[T, PT] {
	head := s.head.Swap(nil)
	return &Stack[T, PT]{head: head}
}

// Drain repeatedly calls TakeAll and, for every element reached, pops it
// (clearing its next pointer so it is observably unlinked) and calls
// reclaim on it, if reclaim is non-nil, until the stack is empty. This
// gives callers a place to hook per-element teardown.
//
// Drain is intended for teardown: unlike TakeAll, which a single fixed
// consumer calls repeatedly during normal operation, Drain is the one-shot
// "stop the world and reclaim everything reachable" operation run when a
// stack is being torn down. Go's garbage collector means failing to call
// Drain is not a memory leak; it only matters for callers who need
// deterministic teardown hooks to run.
func (s *TransferStack[T, PT]) Drain(reclaim func(PT)) {
	for {
		batch := s.TakeAll()
		if batch.head == nil {
			return
		}
		for {
			v, ok := batch.Pop()
			if !ok {
				break
			}
			if reclaim != nil {
				reclaim(v)
			}
		}
	}
}
