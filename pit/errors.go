package pit

import (
	"errors"
	"fmt"
	"time"
)

// ErrAlreadyRunning would indicate that a periodic timer is already armed.
// Enforcing this is left as an open question: channel0Interval only tracks
// the most recently configured interval, so StartPeriodicTimer currently
// never returns this error. It is kept as a typed sentinel so that callers
// written against the fuller contract (and a future enforcement pass)
// compile unchanged.
var ErrAlreadyRunning = errors.New("pit: periodic timer already running")

// ErrSleepInProgress is returned by SleepBlocking when another sleep is
// already outstanding, and by StartPeriodicTimer when a blocking sleep is
// currently in progress.
var ErrSleepInProgress = errors.New("pit: sleep already in progress")

// InvalidDurationError indicates that a requested duration could not be
// programmed into the PIT: either it is negative, or the resulting divisor
// exceeds the PIT's 16-bit counter.
type InvalidDurationError struct {
	Requested time.Duration
	Reason    string
}

func (e *InvalidDurationError) Error() string {
	return fmt.Sprintf("pit: invalid duration %s: %s", e.Requested, e.Reason)
}
