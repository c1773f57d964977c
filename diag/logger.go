package diag

import (
	"time"

	"picow-go/x/timex"
)

// Logger stamps entries and pushes them onto a Queue. The zero Logger
// discards everything.
type Logger struct {
	q      *Queue
	clock  timex.Clock
	source string
	min    Level
}

// NewLogger returns a logger writing to q. Entries below min are discarded
// before they reach the queue.
func NewLogger(q *Queue, clock timex.Clock, min Level) Logger {
	if clock == nil {
		clock = timex.Monotonic()
	}
	return Logger{q: q, clock: clock, min: min}
}

// With returns a copy tagged with source.
func (l Logger) With(source string) Logger {
	l.source = source
	return l
}

// Enabled reports whether lv would be queued.
func (l Logger) Enabled(lv Level) bool { return l.q != nil && lv >= l.min }

func (l Logger) Debug(msg string, fs ...Field) { l.Log(LevelDebug, msg, fs...) }
func (l Logger) Info(msg string, fs ...Field)  { l.Log(LevelInfo, msg, fs...) }
func (l Logger) Warn(msg string, fs ...Field)  { l.Log(LevelWarn, msg, fs...) }
func (l Logger) Error(msg string, fs ...Field) { l.Log(LevelError, msg, fs...) }

// Log queues one entry. It never blocks.
func (l Logger) Log(lv Level, msg string, fs ...Field) {
	if !l.Enabled(lv) {
		return
	}
	e := Entry{At: l.now(), Level: lv, Source: l.source, Msg: msg}
	for _, f := range fs {
		e.add(f)
	}
	l.q.Push(e)
}

// Err attaches err as a string field named "err".
func Err(err error) Field {
	if err == nil {
		return Str("err", "<nil>")
	}
	return Str("err", err.Error())
}

func (l Logger) now() time.Duration {
	if l.clock == nil {
		return 0
	}
	return l.clock.Now()
}
