package clock

import (
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockClock builds a Clock whose tick source is a benbjohnson/clock
// Mock's nanosecond counter, advanced deterministically by the caller
// instead of via real sleeps.
func newMockClock(tickDuration time.Duration) (Clock, *clock.Mock) {
	mock := clock.NewMock()
	c := New(tickDuration, func() Ticks {
		return uint64(mock.Now().UnixNano())
	})
	return c, mock
}

// TestClockMonotonicity: for any two successive calls to
// Clock.Now, the second returns an Instant >= the first when the
// underlying tick source is monotone.
func TestClockMonotonicity(t *testing.T) {
	c, mock := newMockClock(time.Nanosecond)

	first := c.Now()
	mock.Add(5 * time.Millisecond)
	second := c.Now()

	assert.False(t, second.Before(first))
	assert.True(t, second.After(first) || second == first)
}

// TestInstantRoundTrip: (t + d) - t == d when no overflow,
// else None via checked arithmetic.
func TestInstantRoundTrip(t *testing.T) {
	c, _ := newMockClock(time.Nanosecond)
	base := c.Now()

	d := 250 * time.Millisecond
	later, ok := base.CheckedAdd(d)
	require.True(t, ok)

	since, ok := later.CheckedSince(base)
	require.True(t, ok)
	assert.Equal(t, d, since)
}

func TestInstantCheckedAddOverflow(t *testing.T) {
	c, mock := newMockClock(time.Nanosecond)
	mock.Add(time.Millisecond)
	base := c.Now()

	_, ok := base.CheckedAdd(math.MaxInt64)
	assert.False(t, ok)
}

func TestInstantCheckedSubUnderflow(t *testing.T) {
	var zero Instant
	_, ok := zero.CheckedSub(time.Nanosecond)
	assert.False(t, ok)
}

func TestInstantSinceSaturatesToZero(t *testing.T) {
	c, mock := newMockClock(time.Nanosecond)
	earlier := c.Now()
	mock.Add(time.Second)
	later := c.Now()

	// earlier is, well, earlier: subtracting the later instant from it
	// must saturate to zero rather than underflow.
	assert.Equal(t, time.Duration(0), earlier.Since(later))
}

func TestClockMaxDurationSaturates(t *testing.T) {
	c, _ := newMockClock(time.Second)
	max := c.MaxDuration()
	assert.Equal(t, time.Duration(math.MaxInt64), max)
}

func TestDurationToTicksFloors(t *testing.T) {
	c, _ := newMockClock(3 * time.Millisecond)
	ticks, err := c.DurationToTicks(10 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, Ticks(3), ticks) // floor(10/3) == 3
}

func TestDurationToTicksRejectsNegative(t *testing.T) {
	c, _ := newMockClock(time.Millisecond)
	_, err := c.DurationToTicks(-time.Millisecond)
	assert.Error(t, err)
}

func TestClockNamed(t *testing.T) {
	c, _ := newMockClock(time.Millisecond)
	named := c.Named("pit-calibration")
	assert.Equal(t, "pit-calibration", named.Name())
	assert.Equal(t, "", c.Name(), "Named must not mutate the receiver")
}
