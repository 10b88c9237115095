package pit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDriverInterruptInProgramsDivisor: configuring a
// one-shot interrupt programs the expected command byte and divisor.
func TestDriverInterruptInProgramsDivisor(t *testing.T) {
	port := NewSimPort()
	d := New(port)

	err := d.InterruptIn(10 * time.Millisecond)
	require.NoError(t, err)

	cmds := port.Commands()
	require.Len(t, cmds, 1)

	cmd := command{bcdBinary: false, mode: modeInterrupt, access: accessBoth, channel: channel0}
	assert.Equal(t, cmd.bits(), cmds[0])

	wantDivisor, err := divisorFor(10 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, wantDivisor, port.LastDivisor())
}

// TestDriverStartPeriodicTimerProgramsSquareWave verifies that configuring
// a periodic interval programs channel 0 in square-wave mode.
func TestDriverStartPeriodicTimerProgramsSquareWave(t *testing.T) {
	port := NewSimPort()
	d := New(port)

	err := d.StartPeriodicTimer(5 * time.Millisecond)
	require.NoError(t, err)

	cmds := port.Commands()
	require.Len(t, cmds, 1)

	cmd := command{bcdBinary: false, mode: modeSquareWave, access: accessBoth, channel: channel0}
	assert.Equal(t, cmd.bits(), cmds[0])
}

func TestDriverStartPeriodicTimerRejectsDuringSleep(t *testing.T) {
	port := NewSimPort()
	released := make(chan struct{})
	d := New(port, WithWaitForInterrupt(func() {
		<-released
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = d.SleepBlocking(time.Millisecond)
	}()

	for !d.Sleeping() {
		time.Sleep(time.Microsecond)
	}

	err := d.StartPeriodicTimer(time.Millisecond)
	assert.ErrorIs(t, err, ErrSleepInProgress)

	d.HandleInterrupt()
	close(released)
	wg.Wait()
}

// TestDriverSleepBlockingWakesOnInterrupt: a blocking
// sleep returns once HandleInterrupt reports the outstanding sleep.
func TestDriverSleepBlockingWakesOnInterrupt(t *testing.T) {
	port := NewSimPort()

	var spins int32
	var d *Driver
	d = New(port, WithWaitForInterrupt(func() {
		n := atomic.AddInt32(&spins, 1)
		if n == 3 {
			d.HandleInterrupt()
		}
	}))

	err := d.SleepBlocking(2 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, d.Sleeping())
	assert.GreaterOrEqual(t, atomic.LoadInt32(&spins), int32(3))
}

func TestDriverSleepBlockingRejectsConcurrentSleep(t *testing.T) {
	port := NewSimPort()
	released := make(chan struct{})
	d := New(port, WithWaitForInterrupt(func() {
		<-released
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = d.SleepBlocking(time.Millisecond)
	}()

	for !d.Sleeping() {
		time.Sleep(time.Microsecond)
	}

	err := d.SleepBlocking(time.Millisecond)
	assert.ErrorIs(t, err, ErrSleepInProgress)

	d.HandleInterrupt()
	close(released)
	wg.Wait()
}

// TestDriverSleepBlockingRestoresPeriodicTimer verifies that a periodic
// timer configured before a blocking sleep is reprogrammed once the sleep
// completes.
func TestDriverSleepBlockingRestoresPeriodicTimer(t *testing.T) {
	port := NewSimPort()

	var woken int32
	var d *Driver
	d = New(port, WithWaitForInterrupt(func() {
		if atomic.AddInt32(&woken, 1) == 1 {
			d.HandleInterrupt()
		}
	}))

	require.NoError(t, d.StartPeriodicTimer(4*time.Millisecond))
	port.Reset()

	require.NoError(t, d.SleepBlocking(time.Millisecond))

	cmds := port.Commands()
	require.Len(t, cmds, 2)

	oneshot := command{bcdBinary: false, mode: modeInterrupt, access: accessBoth, channel: channel0}
	periodic := command{bcdBinary: false, mode: modeSquareWave, access: accessBoth, channel: channel0}
	assert.Equal(t, oneshot.bits(), cmds[0])
	assert.Equal(t, periodic.bits(), cmds[1])
}

func TestDivisorForRejectsOversizedDuration(t *testing.T) {
	_, err := divisorFor(time.Hour)
	var invalid *InvalidDurationError
	assert.ErrorAs(t, err, &invalid)
}

func TestDivisorForRejectsNegativeDuration(t *testing.T) {
	_, err := divisorFor(-time.Millisecond)
	var invalid *InvalidDurationError
	assert.ErrorAs(t, err, &invalid)
}
