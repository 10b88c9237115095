// Package clock implements a hardware clock abstraction: [Clock] converts
// raw monotonic tick counts from the PIT, HPET, TSC, or (on this Go port)
// any host monotonic source into tick-accurate [Instant]s, with saturating
// and checked arithmetic so that a near-overflow clock degrades gracefully
// instead of wrapping.
package clock

import (
	"fmt"
	"math"
	"math/bits"
	"time"

	"github.com/pkg/errors"
)

// Ticks is a raw hardware tick count. Clock implementations are
// responsible for virtually extending narrower hardware counters (16- or
// 32-bit) to the full 64 bits, e.g. by counting wraps.
type Ticks = uint64

// DurationTooLongError is returned when a requested [time.Duration] cannot
// be represented as a whole number of ticks of a given Clock without
// exceeding Ticks' range.
type DurationTooLongError struct {
	Requested time.Duration
	Max       time.Duration
}

func (e *DurationTooLongError) Error() string {
	return fmt.Sprintf("clock: requested duration %s exceeds max representable duration %s", e.Requested, e.Max)
}

// Clock pairs a tick period with a function pointer returning the current
// raw tick count. now must be safe to call from any context, including an
// interrupt handler, and must return monotonically nondecreasing values
// across successive calls.
type Clock struct {
	now          func() Ticks
	tickDuration time.Duration
	name         string
}

// New constructs a Clock from a tick duration and a monotone tick source.
func New(tickDuration time.Duration, now func() Ticks) Clock {
	return Clock{now: now, tickDuration: tickDuration}
}

// Named returns a copy of c annotated with a name, purely for diagnostics
// (callers read it back via Name); it does not affect Clock's behavior.
func (c Clock) Named(name string) Clock {
	c.name = name
	return c
}

// Name returns the name assigned via Named, or "" if none was set.
func (c Clock) Name() string {
	return c.name
}

// TickDuration returns the amount of time represented by a single tick.
func (c Clock) TickDuration() time.Duration {
	return c.tickDuration
}

// NowTicks returns the clock's current raw tick count.
func (c Clock) NowTicks() Ticks {
	return c.now()
}

// Now returns an Instant corresponding to the clock's current tick count.
func (c Clock) Now() Instant {
	return Instant{elapsed: ticksToDuration(c.tickDuration, c.now())}
}

// MaxDuration returns the Duration equivalent of Ticks' maximum value at
// this clock's tick rate — the longest duration this Clock can express
// before its tick counter's virtual 64-bit extension would need to wrap.
func (c Clock) MaxDuration() time.Duration {
	return ticksToDuration(c.tickDuration, math.MaxUint64)
}

// DurationToTicks converts dur to a whole number of ticks at this clock's
// rate, flooring any remainder, returning a DurationTooLongError if the
// result cannot be represented in Ticks.
func (c Clock) DurationToTicks(dur time.Duration) (Ticks, error) {
	return durationToTicks(c.tickDuration, dur)
}

func durationToTicks(tickDuration, dur time.Duration) (Ticks, error) {
	if tickDuration <= 0 {
		return 0, errors.New("clock: tick duration must be positive")
	}
	if dur < 0 {
		return 0, errors.New("clock: duration must be non-negative")
	}
	ticks := uint64(dur) / uint64(tickDuration)
	// uint64 division can never itself overflow uint64, but the check is
	// kept as an explicit "does the result fit" guard for any future
	// Duration representation wider than Go's int64-nanosecond time.Duration.
	if ticks > math.MaxUint64 {
		return 0, &DurationTooLongError{Requested: dur, Max: ticksToDuration(tickDuration, math.MaxUint64)}
	}
	return ticks, nil
}

// ticksToDuration multiplies tickDuration by ticks using saturating
// arithmetic, so that a clock whose raw counter has advanced close to
// Ticks' maximum value produces time.Duration's maximum value rather than
// silently wrapping around to a small or negative duration.
func ticksToDuration(tickDuration time.Duration, ticks Ticks) time.Duration {
	if tickDuration <= 0 || ticks == 0 {
		return 0
	}
	hi, lo := bits.Mul64(uint64(tickDuration), ticks)
	if hi != 0 || lo > uint64(math.MaxInt64) {
		return math.MaxInt64
	}
	return time.Duration(lo)
}
