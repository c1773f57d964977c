//go:build rp2040 || rp2350

// Package critical provides short sections that exclude interrupt handlers.
package critical

import "runtime/interrupt"

// State is the saved interrupt mask returned by Enter.
type State = interrupt.State

// Enter masks interrupts on the current core.
func Enter() State { return interrupt.Disable() }

// Exit restores the mask saved by Enter.
func Exit(s State) { interrupt.Restore(s) }
