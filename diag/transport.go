package diag

import (
	"io"
	"sync/atomic"

	"go.uber.org/multierr"

	"picow-go/errcode"
)

// Transport delivers one entry. Delivery is best-effort; the sink counts
// failures and moves on.
type Transport interface {
	Send(e *Entry) error
}

// Busy is implemented by transports that complete in the background. While
// Busy reports true the sink waits for the completion interrupt.
type Busy interface {
	Busy() bool
}

// WriterTransport writes one text line per entry to an io.Writer (USB CDC,
// UART, stdout).
type WriterTransport struct {
	w   io.Writer
	buf []byte
}

func NewWriterTransport(w io.Writer) *WriterTransport {
	return &WriterTransport{w: w, buf: make([]byte, 0, 128)}
}

func (t *WriterTransport) Send(e *Entry) error {
	t.buf = e.Append(t.buf[:0])
	t.buf = append(t.buf, '\r', '\n')
	if _, err := t.w.Write(t.buf); err != nil {
		return &errcode.E{C: errcode.TransportFailed, Op: "diag.write", Err: err}
	}
	return nil
}

// AsyncTransport hands entries to a background sender, one at a time, and
// raises done when each finishes. done is normally the completion interrupt
// of the transport controller (irq.Bridge.Handler(irq.LineDiag)).
type AsyncTransport struct {
	next   Transport
	done   func()
	work   chan Entry
	busy   atomic.Bool
	failed atomic.Uint32
	closed atomic.Bool
}

// NewAsyncTransport starts the background sender.
func NewAsyncTransport(next Transport, done func()) *AsyncTransport {
	if done == nil {
		done = func() {}
	}
	t := &AsyncTransport{next: next, done: done, work: make(chan Entry, 1)}
	go t.loop()
	return t
}

// Send starts delivery of a copy of e. It fails with errcode.Busy while the
// previous entry is still in flight.
func (t *AsyncTransport) Send(e *Entry) error {
	if t.closed.Load() {
		return &errcode.E{C: errcode.TransportFailed, Op: "diag.async", Msg: "closed"}
	}
	if !t.busy.CompareAndSwap(false, true) {
		return errcode.Busy
	}
	t.work <- *e
	return nil
}

func (t *AsyncTransport) Busy() bool { return t.busy.Load() }

// Failed counts deliveries the wrapped transport rejected.
func (t *AsyncTransport) Failed() uint32 { return t.failed.Load() }

// Close stops the background sender. Entries sent afterwards fail. Close
// must not race Send; call it once the scheduler has stopped.
func (t *AsyncTransport) Close() {
	if t.closed.CompareAndSwap(false, true) {
		close(t.work)
	}
}

func (t *AsyncTransport) loop() {
	for e := range t.work {
		if err := t.next.Send(&e); err != nil {
			t.failed.Add(1)
		}
		t.busy.Store(false)
		t.done()
	}
}

// Discard drops every entry.
type Discard struct{}

func (Discard) Send(*Entry) error { return nil }

// Tee sends every entry to each transport in turn and combines their errors.
func Tee(ts ...Transport) Transport { return tee(ts) }

type tee []Transport

func (t tee) Send(e *Entry) error {
	var err error
	for _, next := range t {
		err = multierr.Append(err, next.Send(e))
	}
	return err
}
