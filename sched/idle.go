package sched

import (
	"context"
	"time"
)

// Idler parks the scheduler goroutine between rounds.
type Idler interface {
	// Idle returns after Notify, after d elapses (d < 0: no deadline), or
	// when ctx is done.
	Idle(ctx context.Context, d time.Duration)
	// Notify ends the current or next Idle. Safe from interrupt context.
	Notify()
}

// ChanIdler idles on a one-slot channel. A Notify that races ahead of Idle
// is kept in the slot, so no wake is lost.
type ChanIdler struct {
	ch chan struct{}
}

func NewChanIdler() *ChanIdler { return &ChanIdler{ch: make(chan struct{}, 1)} }

func (i *ChanIdler) Notify() {
	select {
	case i.ch <- struct{}{}:
	default:
	}
}

func (i *ChanIdler) Idle(ctx context.Context, d time.Duration) {
	if d < 0 {
		select {
		case <-i.ch:
		case <-ctx.Done():
		}
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-i.ch:
	case <-t.C:
	case <-ctx.Done():
	}
}
