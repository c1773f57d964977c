package diag

import (
	"sync/atomic"

	"picow-go/sched"
	"picow-go/x/critical"
	"picow-go/x/ring"
)

// Queue is the bounded Log Queue. When full, the oldest entry is discarded
// so producers never wait. Push and Pop run inside a critical section and
// may be called next to interrupt handlers.
type Queue struct {
	r        *ring.Ring[Entry]
	notEmpty sched.WaitSet
	drops    atomic.Uint32
	pushed   atomic.Uint32
}

// NewQueue holds at least size entries (rounded up to a power of two).
func NewQueue(size int) *Queue {
	return &Queue{r: ring.New[Entry](ring.RoundUp(size))}
}

// Push appends e and wakes the sink. It reports whether an older entry was
// discarded to make room.
func (q *Queue) Push(e Entry) bool {
	s := critical.Enter()
	dropped := q.r.PushOverwrite(e)
	critical.Exit(s)

	q.pushed.Add(1)
	if dropped {
		q.drops.Add(1)
	}
	q.notEmpty.WakeAll()
	return dropped
}

// Pop removes the oldest retained entry.
func (q *Queue) Pop() (Entry, bool) {
	s := critical.Enter()
	e, ok := q.r.Pop()
	critical.Exit(s)
	return e, ok
}

// Wait reports whether an entry is queued, registering the polling task
// otherwise.
func (q *Queue) Wait(cx *sched.Context) bool {
	if q.Len() > 0 {
		return true
	}
	q.notEmpty.Add(cx)
	// Pushed between the check and registration.
	return q.Len() > 0
}

func (q *Queue) Len() int {
	s := critical.Enter()
	n := q.r.Len()
	critical.Exit(s)
	return n
}

func (q *Queue) Cap() int       { return q.r.Cap() }
func (q *Queue) Drops() uint32  { return q.drops.Load() }
func (q *Queue) Pushed() uint32 { return q.pushed.Load() }
