package wait

// Wait is returned by [Cell.Wait]: a polled future. Repeatedly call Poll,
// passing a [Continuation] that reschedules whatever task is driving the
// poll loop, until it reports ready.
//
// Wait is fused: once Poll has returned ready once, every subsequent call
// returns the same result immediately without touching the Cell again.
type Wait struct {
	cell *Cell

	registered bool
	resolved   bool
	err        error
}

// Poll drives the Wait state machine forward one step.
//
//   - If this is the first call: attempt to register cont with the Cell.
//     On success, return (false, nil) — Pending, now registered. On Busy,
//     self-rewake (cont.WakeByRef()) and return (false, nil), so that the
//     caller's scheduler yields and immediately retries. On Closed, the
//     future resolves to (true, ErrClosed).
//   - On every call after a successful registration: resolve to (true,
//     nil) — the executor is expected to re-poll only once it has actually
//     observed a wake, so Poll does not need to re-check the Cell's state.
//   - On every call after the future has resolved: return the same result
//     again, without touching the Cell.
//
// The returned bool is true when the future is ready (analogous to
// Poll::Ready); err, when non-nil, is always ErrClosed.
func (w *Wait) Poll(cont Continuation) (ready bool, err error) {
	if w.resolved {
		return true, w.err
	}

	if !w.registered {
		switch w.cell.register(cont) {
		case registerOk:
			w.registered = true
			return false, nil
		case registerBusy:
			// Yield: schedule an immediate re-poll rather than blocking.
			cont.WakeByRef()
			return false, nil
		case registerClosed:
			w.resolved = true
			w.err = ErrClosed
			return true, w.err
		}
	}

	w.resolved = true
	w.err = nil
	return true, nil
}
