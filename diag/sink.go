package diag

import (
	"picow-go/sched"
	"picow-go/x/mathx"
)

// Config sizes the Log Queue and the sink.
type Config struct {
	QueueSize int   // entries retained before the oldest is dropped
	Level     Level // entries below Level are never queued
	Burst     int   // entries forwarded per poll before yielding
}

func DefaultConfig() Config {
	return Config{QueueSize: 32, Level: LevelInfo, Burst: 4}
}

// Sanitize clamps c into workable ranges.
func (c Config) Sanitize() Config {
	c.QueueSize = mathx.Clamp(mathx.OrDefault(c.QueueSize, 32), 2, 1024)
	c.Burst = mathx.Clamp(mathx.OrDefault(c.Burst, 4), 1, 64)
	c.Level = mathx.Clamp(c.Level, LevelDebug, LevelError)
	return c
}

// Sink is the diagnostic sink task. It drains the queue in FIFO order and
// forwards every entry to its transport. Transport failures are counted and
// otherwise ignored.
type Sink struct {
	q     *Queue
	t     Transport
	async Busy
	burst int

	// done is raised by the transport's completion interrupt.
	done sched.Signal

	sent   uint32
	failed uint32
}

func NewSink(q *Queue, t Transport, burst int) *Sink {
	if t == nil {
		t = Discard{}
	}
	s := &Sink{q: q, t: t, burst: mathx.Max(burst, 1)}
	if b, ok := t.(Busy); ok {
		s.async = b
	}
	return s
}

// Done is the wake source to bind to the transport's completion line.
func (s *Sink) Done() *sched.Signal { return &s.done }

func (s *Sink) Poll(cx *sched.Context) (sched.Status, error) {
	for n := 0; n < s.burst; n++ {
		if s.async != nil && s.async.Busy() {
			if !s.done.Wait(cx) {
				return sched.Pending, nil
			}
			continue
		}
		e, ok := s.q.Pop()
		if !ok {
			if s.q.Wait(cx) {
				continue
			}
			return sched.Pending, nil
		}
		s.forward(&e)
	}
	return sched.Ready, nil
}

func (s *Sink) forward(e *Entry) {
	if err := s.t.Send(e); err != nil {
		s.failed++
		return
	}
	s.sent++
}

func (s *Sink) Sent() uint32   { return s.sent }
func (s *Sink) Failed() uint32 { return s.failed }
