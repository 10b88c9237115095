// Package pit implements a driver for the Intel 8253/8254 Programmable
// Interval Timer: three channels, of which only channel 0 is wired to an
// interrupt, offering one-shot and periodic interrupt programming plus a
// blocking spin-sleep used to calibrate other timers during boot.
//
// The PIT is a singleton piece of hardware, so [Driver] serializes all
// configuration writes behind a plain sync.Mutex.
package pit

import (
	"math"
	"runtime"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/dijkstracula/corepit/corelog"
	"github.com/dijkstracula/corepit/coremetrics"
)

// BaseFrequencyHz is the PIT's non-configurable base frequency: 1.19318
// MHz, for extremely cool reasons.
const BaseFrequencyHz = 1193180

// TicksPerMs is BaseFrequencyHz expressed per millisecond.
const TicksPerMs = BaseFrequencyHz / 1000

// Ports is the PIT's I/O port surface: channel 0's data port and the
// command port. Real hardware access (inb/outb on 0x40.. 0x43) requires
// either raw assembly or an OS-level I/O-privileged syscall unavailable to
// portable Go. [SimPort] stands in for it in tests and the demo CLI.
type Ports interface {
	WriteChannel0(b byte)
	WriteCommand(b byte)
}

// Driver drives a single PIT. The zero value is not usable; construct with
// [New].
type Driver struct {
	mu sync.Mutex

	ports            Ports
	waitForInterrupt func()

	channel0Interval time.Duration
	hasInterval      bool

	// channel1 (DRAM refresh) and channel2 (PC speaker) are reserved.
	// TODO: channel 1/2 have no public API yet.
	channel1, channel2 struct{}

	// sleeping is this Driver's "is a blocking sleep outstanding" flag.
	// Each Driver has its own flag; two Drivers do not see each other's
	// sleeps, even when they write to the same Ports. It is intentionally a plain atomic rather than something protected
	// by mu: the interrupt handler that clears it via HandleInterrupt must
	// never have to wait on the configuration mutex.
	sleeping atomic.Bool
}

// Option configures a Driver at construction time.
type Option func(*Driver)

// WithWaitForInterrupt overrides the function SleepBlocking spins on while
// waiting for the sleep interrupt to fire. The default yields the
// goroutine via runtime.Gosched; a real interrupt-driven host would swap
// in something that actually parks until IRQ 0 fires.
func WithWaitForInterrupt(fn func()) Option {
	return func(d *Driver) { d.waitForInterrupt = fn }
}

// New constructs a Driver writing to ports.
func New(ports Ports, opts ...Option) *Driver {
	d := &Driver{
		ports:            ports,
		waitForInterrupt: runtime.Gosched,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// divisorFor computes the 16-bit PIT divisor for duration, failing if the
// duration is negative or the divisor would exceed a uint16.
func divisorFor(duration time.Duration) (uint16, error) {
	if duration < 0 {
		return 0, &InvalidDurationError{Requested: duration, Reason: "duration must be non-negative"}
	}
	ms := uint64(duration / time.Millisecond)
	target := uint64(TicksPerMs) * ms
	if target > math.MaxUint16 {
		return 0, &InvalidDurationError{Requested: duration, Reason: "PIT channel 0 divisor would exceed a 16-bit range"}
	}
	return uint16(target), nil
}

func (d *Driver) sendCommand(c command) {
	corelog.Named("pit").Debug("writing PIT command byte", zap.Stringer("command", c))
	d.ports.WriteCommand(c.bits())
}

func (d *Driver) setDivisor(divisor uint16) {
	low := byte(divisor)
	high := byte(divisor >> 8)
	d.ports.WriteChannel0(low)
	d.ports.WriteChannel0(high)
}

// InterruptIn configures PIT channel 0 in mode 0 (one-shot, interrupt on
// terminal count) to fire IRQ 0 after duration. Once the interrupt fires,
// the PIT must be put back into periodic mode (via StartPeriodicTimer) if
// periodic operation is desired.
func (d *Driver) InterruptIn(duration time.Duration) error {
	divisor, err := divisorFor(duration)
	if err != nil {
		coremetrics.ObservePitError("invalid_duration")
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	cmd := command{
		bcdBinary: false,
		mode:      modeInterrupt,
		access:    accessBoth,
		channel:   channel0,
	}
	d.sendCommand(cmd)
	d.setDivisor(divisor)
	return nil
}

// StartPeriodicTimer configures PIT channel 0 in mode 3 (square wave) to
// fire an interrupt every time interval elapses, and remembers interval so
// that a subsequent interrupted sleep (see SleepBlocking) can restore it.
//
// It fails with ErrSleepInProgress if a blocking sleep is currently
// outstanding.
func (d *Driver) StartPeriodicTimer(interval time.Duration) error {
	if d.sleeping.Load() {
		coremetrics.ObservePitError("sleep_in_progress")
		return ErrSleepInProgress
	}

	divisor, err := divisorFor(interval)
	if err != nil {
		coremetrics.ObservePitError("invalid_duration")
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.channel0Interval = interval
	d.hasInterval = true

	cmd := command{
		bcdBinary: false,
		mode:      modeSquareWave,
		access:    accessBoth,
		channel:   channel0,
	}
	d.sendCommand(cmd)
	d.setDivisor(divisor)

	corelog.Named("pit").Info("started PIT periodic timer")
	return nil
}

// SleepBlocking spins (via the configured wait-for-interrupt function)
// until duration has elapsed, using channel 0 in one-shot mode and the
// Driver's sleeping flag to coordinate with HandleInterrupt.
//
// It fails with ErrSleepInProgress if another blocking sleep is already in
// progress. Note: if the requested duration is invalid, the sleeping flag
// is left set (InterruptIn's error is simply propagated) — a caller that
// hits InvalidDurationError here should not expect to be able to
// SleepBlocking again afterwards. This is a known rough edge, not
// something this method tries to paper over.
func (d *Driver) SleepBlocking(duration time.Duration) error {
	if !d.sleeping.CompareAndSwap(false, true) {
		coremetrics.ObservePitError("sleep_in_progress")
		return ErrSleepInProgress
	}

	if err := d.InterruptIn(duration); err != nil {
		return err
	}
	corelog.Named("pit").Debug("started PIT sleep")

	for d.sleeping.Load() {
		d.waitForInterrupt()
	}
	corelog.Named("pit").Info("slept using PIT channel 0")

	d.mu.Lock()
	interval, has := d.channel0Interval, d.hasInterval
	d.mu.Unlock()
	if has {
		corelog.Named("pit").Debug("restarting PIT periodic timer")
		if err := d.StartPeriodicTimer(interval); err != nil {
			return err
		}
	}

	return nil
}

// HandleInterrupt clears the sleeping flag and reports whether a blocking
// sleep was outstanding (true) or the interrupt fired with nobody waiting
// on it (false, e.g. a periodic-mode tick). It must be wired to IRQ 0 by
// the containing kernel's interrupt dispatcher.
func (d *Driver) HandleInterrupt() bool {
	was := d.sleeping.Swap(false)
	coremetrics.ObservePitInterrupt()
	return was
}

// Sleeping reports whether a blocking sleep is currently outstanding.
func (d *Driver) Sleeping() bool {
	return d.sleeping.Load()
}
