package errcode

import "errors"

// Code is a stable, short error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	Busy          Code = "busy"
	Timeout       Code = "timeout"
	InvalidParams Code = "invalid_params"
	Unsupported   Code = "unsupported"

	// Startup (fatal).
	TaskTableFull   Code = "task_table_full"
	AlreadyClaimed  Code = "already_claimed"
	UnknownResource Code = "unknown_resource"
	ResourceMoved   Code = "resource_moved"
	LineInUse       Code = "line_in_use"

	// Link.
	Degraded          Code = "degraded"
	NegotiationFailed Code = "negotiation_failed"
	Malformed         Code = "malformed"
	CommandFailed     Code = "command_failed"

	// Diagnostics.
	TransportFailed Code = "transport_failed"

	Error Code = "error" // generic fallback
)

// E wraps a Code with the operation that produced it and an optional cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil && e.Err != error(e.C) {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap returns an *E for op, or nil when err is nil.
// The code is taken from err when it carries one.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: Of(err), Op: op, Err: err}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return Error
}

// Is reports whether err carries code c.
func Is(err error, c Code) bool { return Of(err) == c }
