package link

import (
	"picow-go/errcode"
	"picow-go/sched"
)

// Ack is the completion of one submitted command. It is owned by the
// submitting task and may be reused once done.
type Ack struct {
	pending bool
	done    bool
	err     error
	waiters sched.WaitSet
}

// Poll reports whether the command finished and, if so, its result.
// When not finished the polling task is registered for wake-up.
func (a *Ack) Poll(cx *sched.Context) (bool, error) {
	if a.done {
		return true, a.err
	}
	a.waiters.Add(cx)
	return a.done, a.err
}

// Done reports whether the command finished.
func (a *Ack) Done() bool { return a.done }

// Err is the result of a finished command.
func (a *Ack) Err() error { return a.err }

func (a *Ack) arm() bool {
	if a.pending {
		return false
	}
	a.pending, a.done, a.err = true, false, nil
	return true
}

func (a *Ack) complete(err error) {
	a.pending, a.done, a.err = false, true, err
	a.waiters.WakeAll()
}

func (a *Ack) disarm() { a.pending = false }

// command is one queued request.
type command struct {
	kind Kind
	arg  [2]byte
	n    uint8
	ack  *Ack
}

func (c *command) payload() []byte { return c.arg[:c.n] }

// Control submits commands to the link task. It never blocks: a full queue
// fails with errcode.Busy and WaitSpace suspends until a slot frees. Control
// is used from task context only.
type Control struct {
	q   *sched.Queue[command]
	pub *published
}

// SetPin drives co-processor GPIO index to level.
func (c *Control) SetPin(ack *Ack, index int, level bool) error {
	if index < 0 || index >= MaxGPIO {
		return &errcode.E{C: errcode.InvalidParams, Op: "link.set_pin", Msg: "gpio index"}
	}
	var v byte
	if level {
		v = 1
	}
	return c.submit("link.set_pin", command{kind: KindSetPin, arg: [2]byte{byte(index), v}, n: 2, ack: ack})
}

// SetPowerMode changes the co-processor's power-management mode.
func (c *Control) SetPowerMode(ack *Ack, mode PowerMode) error {
	if mode > PowerAggressive {
		return &errcode.E{C: errcode.InvalidParams, Op: "link.set_power_mode", Msg: "mode"}
	}
	return c.submit("link.set_power_mode", command{kind: KindPower, arg: [2]byte{byte(mode)}, n: 1, ack: ack})
}

func (c *Control) submit(op string, cmd command) error {
	if cmd.ack == nil {
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "nil ack"}
	}
	if c.pub.load().State == Degraded {
		return &errcode.E{C: errcode.Degraded, Op: op}
	}
	if !cmd.ack.arm() {
		return &errcode.E{C: errcode.Busy, Op: op, Msg: "ack in use"}
	}
	if !c.q.TrySend(cmd) {
		cmd.ack.disarm()
		return &errcode.E{C: errcode.Busy, Op: op, Msg: "queue full"}
	}
	return nil
}

// WaitSpace reports whether a submission would be accepted, registering the
// polling task for wake-up otherwise. It reports true when degraded so the
// caller observes the failure from the next submission.
func (c *Control) WaitSpace(cx *sched.Context) bool {
	if c.pub.load().State == Degraded {
		return true
	}
	return c.q.WaitSpace(cx)
}

// Status returns the published link status.
func (c *Control) Status() Status { return c.pub.load() }
