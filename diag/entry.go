// Package diag carries diagnostic records from tasks to a transport.
//
// Producers never block: a Logger encodes nothing, it copies a fixed-size
// Entry into the Log Queue and returns. The Sink task drains the queue in
// order and hands each entry to a Transport.
package diag

import (
	"time"

	"picow-go/x/conv"
)

type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "?"
	}
}

// ParseLevel maps a lower- or upper-case level name. Unknown names give
// LevelInfo and false.
func ParseLevel(s string) (Level, bool) {
	switch s {
	case "debug", "DEBUG":
		return LevelDebug, true
	case "info", "INFO":
		return LevelInfo, true
	case "warn", "WARN", "warning":
		return LevelWarn, true
	case "error", "ERROR":
		return LevelError, true
	}
	return LevelInfo, false
}

// MaxFields bounds the typed fields carried by one Entry. Extra fields are
// dropped.
const MaxFields = 4

type fieldKind uint8

const (
	kindNone fieldKind = iota
	kindStr
	kindInt
	kindBool
)

// Field is a typed key/value attached to an Entry.
type Field struct {
	Key  string
	kind fieldKind
	s    string
	i    int64
}

func Str(k, v string) Field     { return Field{Key: k, kind: kindStr, s: v} }
func Int(k string, v int) Field { return Field{Key: k, kind: kindInt, i: int64(v)} }
func Bool(k string, v bool) Field {
	f := Field{Key: k, kind: kindBool}
	if v {
		f.i = 1
	}
	return f
}

// Value returns the field's value as string, int64 or bool.
func (f Field) Value() any {
	switch f.kind {
	case kindStr:
		return f.s
	case kindInt:
		return f.i
	case kindBool:
		return f.i != 0
	}
	return nil
}

func (f Field) appendValue(dst []byte) []byte {
	switch f.kind {
	case kindStr:
		return append(dst, f.s...)
	case kindInt:
		return conv.AppendInt(dst, f.i)
	case kindBool:
		if f.i != 0 {
			return append(dst, "true"...)
		}
		return append(dst, "false"...)
	}
	return dst
}

// Entry is one diagnostic record. It is a plain value so queueing it does
// not allocate.
type Entry struct {
	At     time.Duration // since boot
	Level  Level
	Source string
	Msg    string

	fields [MaxFields]Field
	n      uint8
}

// Fields returns the entry's fields.
func (e *Entry) Fields() []Field { return e.fields[:e.n] }

func (e *Entry) add(f Field) {
	if int(e.n) < MaxFields {
		e.fields[e.n] = f
		e.n++
	}
}

// Append encodes e as one text line without the trailing newline:
//
//	[    12.345] INFO  link: ready chip=43439
func (e *Entry) Append(dst []byte) []byte {
	ms := uint64(e.At / time.Millisecond)
	dst = append(dst, '[')
	secs := conv.AppendUint(nil, ms/1000)
	for k := len(secs); k < 6; k++ {
		dst = append(dst, ' ')
	}
	dst = append(dst, secs...)
	dst = append(dst, '.')
	dst = conv.AppendPadded(dst, ms%1000, 3)
	dst = append(dst, "] "...)

	lv := e.Level.String()
	dst = append(dst, lv...)
	for k := len(lv); k < 5; k++ {
		dst = append(dst, ' ')
	}
	dst = append(dst, ' ')

	if e.Source != "" {
		dst = append(dst, e.Source...)
		dst = append(dst, ": "...)
	}
	dst = append(dst, e.Msg...)
	for _, f := range e.Fields() {
		dst = append(dst, ' ')
		dst = append(dst, f.Key...)
		dst = append(dst, '=')
		dst = f.appendValue(dst)
	}
	return dst
}

func (e *Entry) String() string { return string(e.Append(nil)) }
