package sched

import "sync/atomic"

// WaitSet is a set of tasks waiting for a condition. Waiters re-check their
// condition when woken, so spurious wakes are harmless.
type WaitSet struct {
	s    atomic.Pointer[Scheduler]
	mask atomic.Uint32
}

// Add registers the polling task.
func (ws *WaitSet) Add(cx *Context) {
	ws.s.Store(cx.s)
	bit := uint32(1) << cx.id
	for {
		old := ws.mask.Load()
		if old&bit != 0 || ws.mask.CompareAndSwap(old, old|bit) {
			return
		}
	}
}

// WakeAll makes every registered task runnable and clears the set.
// Safe from interrupt context.
func (ws *WaitSet) WakeAll() {
	m := ws.mask.Swap(0)
	if m == 0 {
		return
	}
	if s := ws.s.Load(); s != nil {
		s.markReady(m)
	}
}

// Signal is a latched wake source. Notify sets the latch and wakes the
// waiters; Wait consumes the latch. Used to bind interrupt lines to tasks.
type Signal struct {
	waiters WaitSet
	pending atomic.Bool
	fired   atomic.Uint32
}

// Notify latches the signal. Safe from interrupt context; performs no other
// work.
func (sg *Signal) Notify() {
	sg.fired.Add(1)
	sg.pending.Store(true)
	sg.waiters.WakeAll()
}

// Wait consumes a pending notification and reports true, or registers the
// polling task and reports false.
func (sg *Signal) Wait(cx *Context) bool {
	if sg.pending.Swap(false) {
		return true
	}
	sg.waiters.Add(cx)
	// Notified between the first check and registration.
	return sg.pending.Swap(false)
}

// Take consumes a pending notification without registering.
func (sg *Signal) Take() bool { return sg.pending.Swap(false) }

// Fired counts notifications since creation.
func (sg *Signal) Fired() uint32 { return sg.fired.Load() }
