package sched

import "picow-go/x/ring"

// Queue is a bounded FIFO between tasks. Producers never block: TrySend
// fails when the queue is full and WaitSpace suspends until a slot frees.
// Queue is not for interrupt context.
type Queue[T any] struct {
	r        *ring.Ring[T]
	notEmpty WaitSet
	notFull  WaitSet
}

// NewQueue creates a queue holding at least size items (rounded up to a
// power of two).
func NewQueue[T any](size int) *Queue[T] {
	return &Queue[T]{r: ring.New[T](ring.RoundUp(size))}
}

// TrySend enqueues v and wakes the consumer. It reports false when full.
func (q *Queue[T]) TrySend(v T) bool {
	if !q.r.Push(v) {
		return false
	}
	q.notEmpty.WakeAll()
	return true
}

// WaitSpace reports whether a slot is free, registering the task otherwise.
func (q *Queue[T]) WaitSpace(cx *Context) bool {
	if q.r.Space() > 0 {
		return true
	}
	q.notFull.Add(cx)
	return false
}

// Recv dequeues the oldest item, or registers the task and reports false.
func (q *Queue[T]) Recv(cx *Context) (T, bool) {
	v, ok := q.TryRecv()
	if !ok {
		q.notEmpty.Add(cx)
	}
	return v, ok
}

// TryRecv dequeues the oldest item without registering.
func (q *Queue[T]) TryRecv() (T, bool) {
	v, ok := q.r.Pop()
	if ok {
		q.notFull.WakeAll()
	}
	return v, ok
}

func (q *Queue[T]) Len() int { return q.r.Len() }
