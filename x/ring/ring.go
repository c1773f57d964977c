// Package ring is a fixed-capacity FIFO of values with monotonic indices.
//
// A Ring performs no locking. Callers that share a Ring with interrupt
// context wrap each call in a critical section (see x/critical).
package ring

// Ring holds up to a power-of-two number of T.
type Ring[T any] struct {
	buf  []T
	mask uint32
	rd   uint32 // consumer index (monotonic)
	wr   uint32 // producer index (monotonic)
}

// New allocates a Ring. size must be a power of two >= 2.
func New[T any](size int) *Ring[T] {
	if size < 2 || (size&(size-1)) != 0 {
		panic("ring: size must be power of two >= 2")
	}
	return &Ring[T]{buf: make([]T, size), mask: uint32(size - 1)}
}

// RoundUp returns the smallest power of two >= n (minimum 2).
func RoundUp(n int) int {
	p := 2
	for p < n {
		p <<= 1
	}
	return p
}

func (r *Ring[T]) Cap() int    { return len(r.buf) }
func (r *Ring[T]) Len() int    { return int(r.wr - r.rd) }
func (r *Ring[T]) Space() int  { return len(r.buf) - r.Len() }
func (r *Ring[T]) Empty() bool { return r.wr == r.rd }
func (r *Ring[T]) Full() bool  { return r.Len() == len(r.buf) }

// Push appends v. It reports false, leaving the ring unchanged, when full.
func (r *Ring[T]) Push(v T) bool {
	if r.Full() {
		return false
	}
	r.buf[r.wr&r.mask] = v
	r.wr++
	return true
}

// PushOverwrite appends v, discarding the oldest element when full.
// It reports whether an element was discarded.
func (r *Ring[T]) PushOverwrite(v T) (dropped bool) {
	if r.Full() {
		var zero T
		r.buf[r.rd&r.mask] = zero
		r.rd++
		dropped = true
	}
	r.buf[r.wr&r.mask] = v
	r.wr++
	return dropped
}

// Pop removes and returns the oldest element.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	if r.Empty() {
		return zero, false
	}
	i := r.rd & r.mask
	v := r.buf[i]
	r.buf[i] = zero // release references for the GC
	r.rd++
	return v, true
}

// Peek returns the oldest element without removing it.
func (r *Ring[T]) Peek() (T, bool) {
	if r.Empty() {
		var zero T
		return zero, false
	}
	return r.buf[r.rd&r.mask], true
}
