// Package sched is a cooperative, single-core executor.
//
// Tasks are resumable state machines. The scheduler polls a runnable task,
// the task runs until it reaches an await point (a Timer, a Signal, a
// WaitSet or a Queue) and returns Pending, or yields with Ready. Nothing is
// ever preempted. Interrupt handlers only flip runnable bits through a
// Signal or WaitSet; all task logic runs from the scheduler loop.
package sched

import (
	"context"
	"sync/atomic"
	"time"

	"picow-go/errcode"
	"picow-go/x/timex"
)

// MaxTasks is the fixed size of the task table.
const MaxTasks = 8

// TaskID indexes the task table.
type TaskID uint8

// Status is returned by Task.Poll.
type Status uint8

const (
	// Pending: suspended at an await point that will wake the task.
	Pending Status = iota
	// Ready: yielded voluntarily; poll again on the next round.
	Ready
)

// Task is one long-lived unit of cooperative work.
//
// Poll must return promptly. A task that never returns starves every other
// task; the scheduler cannot detect it. A non-nil error is unrecoverable and
// stops the scheduler.
type Task interface {
	Poll(cx *Context) (Status, error)
}

// TaskFunc adapts a function to Task.
type TaskFunc func(cx *Context) (Status, error)

func (f TaskFunc) Poll(cx *Context) (Status, error) { return f(cx) }

type record struct {
	name   string
	task   Task
	cx     Context
	timed  bool
	wakeAt time.Duration
	polls  uint32
}

// Scheduler owns the task table. It is driven from exactly one goroutine.
type Scheduler struct {
	noCopy noCopy

	clock timex.Clock
	idler Idler

	tasks [MaxTasks]record
	n     int
	rr    int

	// ready is the runnable bitmask; written from interrupt context.
	ready atomic.Uint32
	idles atomic.Uint32
}

// New creates a scheduler. A nil clock selects the monotonic clock and a
// nil idler a ChanIdler.
func New(clock timex.Clock, idler Idler) *Scheduler {
	if clock == nil {
		clock = timex.Monotonic()
	}
	if idler == nil {
		idler = NewChanIdler()
	}
	return &Scheduler{clock: clock, idler: idler}
}

// Register admits a task. New tasks start runnable. Registration fails only
// when the table is full, which callers treat as fatal.
func (s *Scheduler) Register(name string, t Task) (TaskID, error) {
	if s.n >= MaxTasks {
		return 0, &errcode.E{C: errcode.TaskTableFull, Op: "sched.register", Msg: name}
	}
	id := TaskID(s.n)
	r := &s.tasks[id]
	r.name = name
	r.task = t
	r.cx = Context{s: s, id: id}
	s.n++
	s.markReady(1 << id)
	return id, nil
}

// Len reports the number of registered tasks.
func (s *Scheduler) Len() int { return s.n }

// Now reads the scheduler's clock.
func (s *Scheduler) Now() time.Duration { return s.clock.Now() }

// RunOnce fires due timers, then polls every task that was runnable on
// entry once, in round-robin order starting after the last task served.
// It reports whether any task was polled.
func (s *Scheduler) RunOnce() (bool, error) {
	s.fireTimers(s.clock.Now())

	mask := s.ready.Swap(0)
	if mask == 0 {
		return false, nil
	}
	for k := 0; k < s.n; k++ {
		id := (s.rr + k) % s.n
		bit := uint32(1) << id
		if mask&bit == 0 {
			continue
		}
		r := &s.tasks[id]
		r.polls++
		st, err := r.task.Poll(&r.cx)
		if err != nil {
			return true, errcode.Wrap("task "+r.name, err)
		}
		if st == Ready {
			s.markReady(bit)
		}
	}
	s.rr = (s.rr + 1) % s.n
	return true, nil
}

// RunUntilIdle steps the scheduler until no task is runnable and no timer
// is due, or until maxRounds rounds ran. Exceeding maxRounds returns
// errcode.Busy: some task keeps yielding without suspending.
func (s *Scheduler) RunUntilIdle(maxRounds int) error {
	for i := 0; i < maxRounds; i++ {
		ran, err := s.RunOnce()
		if err != nil {
			return err
		}
		if !ran {
			return nil
		}
	}
	return &errcode.E{C: errcode.Busy, Op: "sched.run_until_idle"}
}

// Run drives the scheduler forever. Between rounds with no runnable task it
// idles until a wake source fires or the next timer deadline passes.
//
// Run returns only when a task fails (the caller halts the process) or ctx
// is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ran, err := s.RunOnce()
		if err != nil {
			return err
		}
		if ran {
			continue
		}
		d := time.Duration(-1)
		if at, ok := s.NextDeadline(); ok {
			d = at - s.clock.Now()
			if d <= 0 {
				continue
			}
		}
		s.idles.Add(1)
		s.idler.Idle(ctx, d)
	}
}

// NextDeadline returns the earliest pending timer deadline.
func (s *Scheduler) NextDeadline() (time.Duration, bool) {
	var at time.Duration
	ok := false
	for i := 0; i < s.n; i++ {
		r := &s.tasks[i]
		if r.timed && (!ok || r.wakeAt < at) {
			at, ok = r.wakeAt, true
		}
	}
	return at, ok
}

// Runnable reports whether any task is marked runnable.
func (s *Scheduler) Runnable() bool { return s.ready.Load() != 0 }

func (s *Scheduler) fireTimers(now time.Duration) {
	var mask uint32
	for i := 0; i < s.n; i++ {
		r := &s.tasks[i]
		if r.timed && r.wakeAt <= now {
			r.timed = false
			mask |= 1 << i
		}
	}
	if mask != 0 {
		s.markReady(mask)
	}
}

func (s *Scheduler) wakeAt(id TaskID, at time.Duration) {
	r := &s.tasks[id]
	if !r.timed || at < r.wakeAt {
		r.timed = true
		r.wakeAt = at
	}
}

// markReady sets runnable bits. Safe from interrupt context.
func (s *Scheduler) markReady(mask uint32) {
	if mask == 0 {
		return
	}
	for {
		old := s.ready.Load()
		if old&mask == mask {
			break
		}
		if s.ready.CompareAndSwap(old, old|mask) {
			break
		}
	}
	s.idler.Notify()
}

// TaskStats is a snapshot of one task record.
type TaskStats struct {
	ID       TaskID
	Name     string
	Polls    uint32
	Runnable bool
	Timed    bool
}

// Stats appends a snapshot of every task record to dst.
func (s *Scheduler) Stats(dst []TaskStats) []TaskStats {
	ready := s.ready.Load()
	for i := 0; i < s.n; i++ {
		r := &s.tasks[i]
		dst = append(dst, TaskStats{
			ID:       TaskID(i),
			Name:     r.name,
			Polls:    r.polls,
			Runnable: ready&(1<<i) != 0,
			Timed:    r.timed,
		})
	}
	return dst
}

// Idles counts how often Run went idle.
func (s *Scheduler) Idles() uint32 { return s.idles.Load() }

// Context is handed to Task.Poll. It is only valid during the poll.
type Context struct {
	s  *Scheduler
	id TaskID
}

func (cx *Context) Now() time.Duration { return cx.s.clock.Now() }

// WakeAt asks to be made runnable once the clock reaches at.
func (cx *Context) WakeAt(at time.Duration) { cx.s.wakeAt(cx.id, at) }

// noCopy may be embedded in structs which must not be copied after first use.
// See go vet's copylocks check.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
