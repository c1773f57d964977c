package sched

import "time"

// Timer is a one-shot deadline owned by a single task. It wakes the task
// exactly once per Arm.
type Timer struct {
	deadline time.Duration
	armed    bool
}

// Arm sets the deadline to d from now, replacing any previous deadline.
func (t *Timer) Arm(cx *Context, d time.Duration) {
	if d < 0 {
		d = 0
	}
	t.deadline = cx.Now() + d
	t.armed = true
	cx.WakeAt(t.deadline)
}

// Expired reports whether the deadline has passed and disarms the timer if
// so. Otherwise it schedules a wake at the deadline. An unarmed Timer never
// expires.
func (t *Timer) Expired(cx *Context) bool {
	if !t.armed {
		return false
	}
	if cx.Now() >= t.deadline {
		t.armed = false
		return true
	}
	cx.WakeAt(t.deadline)
	return false
}

func (t *Timer) Armed() bool { return t.armed }
func (t *Timer) Stop()       { t.armed = false }

// Deadline returns the armed deadline.
func (t *Timer) Deadline() time.Duration { return t.deadline }
