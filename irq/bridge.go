// Package irq maps hardware interrupt lines to wake sources.
//
// The bridge owns no state beyond the mapping. Fire is the only code that
// runs in interrupt context; it latches the bound sched.Signal and returns.
package irq

import (
	"sync/atomic"

	"picow-go/errcode"
	"picow-go/sched"
)

// Line identifies an interrupt consumer.
type Line uint8

const (
	// LineLink is the co-processor's host-wake on the serial-peripheral
	// controller (PIO0 IRQ 0 / data-line edge on Pico W).
	LineLink Line = iota
	// LineDiag is the diagnostic transport controller's completion.
	LineDiag

	numLines
)

func (l Line) String() string {
	switch l {
	case LineLink:
		return "link"
	case LineDiag:
		return "diag"
	default:
		return "unknown"
	}
}

// Bridge holds one wake source per line.
type Bridge struct {
	lines [numLines]atomic.Pointer[sched.Signal]
	drops atomic.Uint32 // fires on unbound lines
}

func New() *Bridge { return &Bridge{} }

// Bind attaches sig to line. Each line binds exactly once.
func (b *Bridge) Bind(line Line, sig *sched.Signal) error {
	if line >= numLines || sig == nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "irq.bind", Msg: line.String()}
	}
	if !b.lines[line].CompareAndSwap(nil, sig) {
		return &errcode.E{C: errcode.LineInUse, Op: "irq.bind", Msg: line.String()}
	}
	return nil
}

// Fire is called from the interrupt handler for line.
func (b *Bridge) Fire(line Line) {
	if line >= numLines {
		b.drops.Add(1)
		return
	}
	if sig := b.lines[line].Load(); sig != nil {
		sig.Notify()
		return
	}
	b.drops.Add(1) // protect ISR path
}

// Handler returns a closure suitable for registering as an ISR callback.
func (b *Bridge) Handler(line Line) func() {
	return func() { b.Fire(line) }
}

// Bound reports whether line has a wake source.
func (b *Bridge) Bound(line Line) bool {
	return line < numLines && b.lines[line].Load() != nil
}

// Drops counts fires that found no bound wake source.
func (b *Bridge) Drops() uint32 { return b.drops.Load() }
