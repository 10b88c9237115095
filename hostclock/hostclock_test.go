package hostclock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonotonicNowNeverDecreases(t *testing.T) {
	c := Monotonic()
	first := c.Now()
	second := c.Now()
	assert.False(t, second.Before(first))
}

func TestMonotonicTickDurationIsOneNanosecond(t *testing.T) {
	c := Monotonic()
	assert.Equal(t, int64(1), c.TickDuration().Nanoseconds())
}
