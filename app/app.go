// Package app is the application task: it puts the co-processor into its
// power-saving mode and then blinks the LED wired to a co-processor GPIO.
package app

import (
	"time"

	"picow-go/diag"
	"picow-go/errcode"
	"picow-go/link"
	"picow-go/sched"
	"picow-go/x/mathx"
)

type Config struct {
	Period time.Duration  // time spent in each LED state
	Pin    int            // co-processor GPIO driving the LED
	Mode   link.PowerMode // requested once at start
}

func DefaultConfig() Config {
	return Config{Period: time.Second, Pin: 0, Mode: link.PowerSave}
}

func (c Config) Sanitize() Config {
	c.Period = mathx.ClampDuration(c.Period, time.Second, 10*time.Millisecond, time.Hour)
	c.Pin = mathx.Clamp(c.Pin, 0, link.MaxGPIO-1)
	c.Mode = mathx.Clamp(c.Mode, link.PowerNone, link.PowerAggressive)
	return c
}

type step uint8

const (
	stepMode step = iota
	stepModeAck
	stepAnnounce
	stepSubmit
	stepAck
	stepWait
)

// Task is the blink loop. Command failures are logged and the loop goes on.
type Task struct {
	cfg Config
	ctl *link.Control
	log diag.Logger

	step  step
	level bool
	ack   link.Ack
	timer sched.Timer

	cycles uint32
	fails  uint32
}

func New(cfg Config, ctl *link.Control, log diag.Logger) *Task {
	return &Task{cfg: cfg.Sanitize(), ctl: ctl, log: log.With("app"), level: true}
}

// Cycles counts completed LED states.
func (t *Task) Cycles() uint32 { return t.cycles }

// Failures counts failed commands.
func (t *Task) Failures() uint32 { return t.fails }

func (t *Task) Poll(cx *sched.Context) (sched.Status, error) {
	for {
		switch t.step {
		case stepMode:
			err := t.ctl.SetPowerMode(&t.ack, t.cfg.Mode)
			if errcode.Is(err, errcode.Busy) {
				if !t.ctl.WaitSpace(cx) {
					return sched.Pending, nil
				}
				continue
			}
			if err != nil {
				t.failed("set_power_mode", err)
				t.step = stepAnnounce
				continue
			}
			t.step = stepModeAck

		case stepModeAck:
			done, err := t.ack.Poll(cx)
			if !done {
				return sched.Pending, nil
			}
			if err != nil {
				t.failed("set_power_mode", err)
			} else {
				t.log.Info("power mode set", diag.Str("mode", t.cfg.Mode.String()))
			}
			t.step = stepAnnounce

		case stepAnnounce:
			if t.level {
				t.log.Info("led on!")
			} else {
				t.log.Info("led off!")
			}
			t.step = stepSubmit

		case stepSubmit:
			err := t.ctl.SetPin(&t.ack, t.cfg.Pin, t.level)
			if errcode.Is(err, errcode.Busy) {
				if !t.ctl.WaitSpace(cx) {
					return sched.Pending, nil
				}
				continue
			}
			if err != nil {
				t.failed("set_pin", err)
				t.wait(cx)
				continue
			}
			t.step = stepAck

		case stepAck:
			done, err := t.ack.Poll(cx)
			if !done {
				return sched.Pending, nil
			}
			if err != nil {
				t.failed("set_pin", err)
			}
			t.wait(cx)

		case stepWait:
			if !t.timer.Expired(cx) {
				return sched.Pending, nil
			}
			t.level = !t.level
			t.cycles++
			t.step = stepAnnounce
		}
	}
}

func (t *Task) wait(cx *sched.Context) {
	t.timer.Arm(cx, t.cfg.Period)
	t.step = stepWait
}

func (t *Task) failed(op string, err error) {
	t.fails++
	t.log.Warn(op+" failed", diag.Err(err))
}
