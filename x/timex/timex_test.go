package timex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManualClock(t *testing.T) {
	var c Manual
	require.Equal(t, time.Duration(0), c.Now())
	c.Advance(5 * time.Millisecond)
	c.Advance(-time.Second)
	require.Equal(t, 5*time.Millisecond, c.Now())
	c.Set(2 * time.Millisecond) // never goes backwards
	require.Equal(t, 5*time.Millisecond, c.Now())
	c.Set(time.Second)
	require.Equal(t, time.Second, c.Now())
}

func TestMonotonicNeverDecreases(t *testing.T) {
	c := Monotonic()
	a := c.Now()
	b := c.Now()
	require.GreaterOrEqual(t, b, a)
}
