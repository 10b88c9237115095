// Package wait implements [Cell], an atomically-registered single-slot
// notification primitive: a single waiting task registers a [Continuation]
// and any notifier (an interrupt handler, a peer task, a timer) may wake
// it, without either side blocking on a lock.
//
// This follows the AtomicWaker pattern used by several async runtimes'
// synchronization primitives, with an additional CLOSED bit layered in so
// that a Cell can be permanently shut down: once closed, every future
// Register call fails immediately rather than parking a waiter that will
// never be woken. No panic may escape Wake or Close.
package wait

import (
	"errors"

	"go.uber.org/atomic"

	"github.com/dijkstracula/corepit/corelog"
	"github.com/dijkstracula/corepit/coremetrics"
)

// Bits of Cell's packed state word. WAITING is the implicit zero state;
// the others are independently settable flags. Weakening any of the
// orderings below from acquire/release to relaxed would break publication
// of the slot's contents.
const (
	stateWaiting   uint32 = 0
	stateParking   uint32 = 1 << 0
	stateNotifying uint32 = 1 << 1
	stateClosed    uint32 = 1 << 2
)

// ErrBusy indicates that a Register attempt raced with a concurrent
// notifier or another registration attempt and must be retried.
var ErrBusy = errors.New("waitcell: busy")

// ErrClosed indicates that the Cell has been permanently closed: no future
// Register call will ever succeed.
var ErrClosed = errors.New("waitcell: closed")

// Cell is an atomically registered, single-waiter notification slot. The
// zero value is an empty, open Cell ready for use.
type Cell struct {
	state atomic.Uint32
	waker Continuation
}

// fetchOr atomically ORs bits into *a and returns the value immediately
// before the update, as a CAS retry loop since go.uber.org/atomic has no
// built-in fetch-or primitive.
func fetchOr(a *atomic.Uint32, bits uint32) uint32 {
	for {
		cur := a.Load()
		if a.CompareAndSwap(cur, cur|bits) {
			return cur
		}
	}
}

// fetchAnd atomically ANDs bits into *a and returns the value immediately
// before the update.
func fetchAnd(a *atomic.Uint32, bits uint32) uint32 {
	for {
		cur := a.Load()
		if a.CompareAndSwap(cur, cur&bits) {
			return cur
		}
	}
}

type registerResult int

const (
	registerOk registerResult = iota
	registerBusy
	registerClosed
)

// register attempts to install cont as the Cell's waiter.
//
// Using the state bits defined above: WAITING -> PARKING is attempted via
// CAS; CLOSED or any other non-WAITING state yields Busy/Closed without
// touching the slot.
func (c *Cell) register(cont Continuation) registerResult {
	for {
		cur := c.state.Load()
		if cur == stateWaiting {
			if c.state.CompareAndSwap(stateWaiting, stateParking) {
				break
			}
			continue
		}
		if cur&stateClosed != 0 {
			corelog.Named("waitcell").Debug("register observed closed cell")
			coremetrics.ObserveWaitRegister("closed")
			return registerClosed
		}
		coremetrics.ObserveWaitRegister("busy")
		return registerBusy
	}

	// We hold the exclusive PARKING right: it is safe to read and mutate
	// the slot.
	old := c.waker
	var installed Continuation
	if old != nil && old.WillWake(cont) {
		// The existing registration is already equivalent; leave it and
		// let cont be dropped by the caller.
		installed = old
	} else {
		c.waker = cont
		installed = cont
		if old != nil {
			// The displaced registration is stale: its task must be
			// rescheduled so that it observes the new registration rather
			// than waiting on a continuation nobody will ever wake again.
			old.Wake()
		}
	}

	if c.state.CompareAndSwap(stateParking, stateWaiting) {
		coremetrics.ObserveWaitRegister("ok")
		return registerOk
	}

	// A notifier intervened while we held PARKING: the only possible prior
	// state here is PARKING|NOTIFYING, with CLOSED also set if the
	// notifier was Close. Resolve as
	// closed from this attempt's perspective — any non-retry resolution
	// must move the task forward, and the notification belongs to the
	// continuation we just installed.
	c.waker = nil
	fetchAnd(&c.state, stateClosed)
	if installed != nil {
		installed.Wake()
	}
	corelog.Named("waitcell").Debug("register lost race with notifier")
	coremetrics.ObserveWaitRegister("closed")
	return registerClosed
}

// notify wakes the registered waiter, if any, optionally closing the Cell
// at the same time. It reports whether a waiter was actually woken.
func (c *Cell) notify(closeBit uint32) bool {
	prev := fetchOr(&c.state, stateNotifying|closeBit)
	if prev != stateWaiting {
		// PARKING (possibly already NOTIFYING): the parker owns the slot.
		// The close bit, if set, persists and will be observed when the
		// parker finishes registering.
		coremetrics.ObserveWaitNotify(false)
		return false
	}

	cont := c.waker
	c.waker = nil
	fetchAnd(&c.state, ^stateNotifying)

	if cont != nil {
		cont.Wake()
		coremetrics.ObserveWaitNotify(true)
		return true
	}
	coremetrics.ObserveWaitNotify(false)
	return false
}

// Wake notifies the registered waiter, if any, and reports whether a
// waiter was woken.
func (c *Cell) Wake() bool {
	return c.notify(0)
}

// Close permanently closes the Cell: it wakes the registered waiter (if
// any) and ensures every future Register call returns ErrClosed. Closing
// an already-closed Cell is a no-op.
func (c *Cell) Close() {
	c.notify(stateClosed)
}

// Closed reports whether the Cell has been closed.
func (c *Cell) Closed() bool {
	return c.state.Load()&stateClosed != 0
}

// Wait returns a new, unregistered [Wait] future for this Cell.
func (c *Cell) Wait() *Wait {
	return &Wait{cell: c}
}
