package timex

import (
	"sync/atomic"
	"time"
)

// Clock is a monotonic time base measured from boot.
type Clock interface {
	Now() time.Duration
}

// Monotonic returns a Clock backed by the runtime's monotonic timer.
// On rp2040 this is the RP2 timer peripheral via the TinyGo runtime.
func Monotonic() Clock { return &mono{start: time.Now()} }

type mono struct{ start time.Time }

func (m *mono) Now() time.Duration { return time.Since(m.start) }

// Manual is a Clock advanced explicitly; used by tests and the simulator.
// Safe for concurrent use.
type Manual struct {
	ns atomic.Int64
}

func (m *Manual) Now() time.Duration { return time.Duration(m.ns.Load()) }

// Advance moves the clock forward by d (negative values are ignored).
func (m *Manual) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	m.ns.Add(int64(d))
}

// Set jumps the clock to t if t is later than the current time.
func (m *Manual) Set(t time.Duration) {
	for {
		cur := m.ns.Load()
		if int64(t) <= cur {
			return
		}
		if m.ns.CompareAndSwap(cur, int64(t)) {
			return
		}
	}
}
