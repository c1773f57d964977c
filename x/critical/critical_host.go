//go:build !(rp2040 || rp2350)

// Package critical provides short sections that exclude interrupt handlers.
//
// On host builds "interrupts" are goroutines standing in for hardware, so a
// global mutex is used. Sections must not nest.
package critical

import "sync"

var mu sync.Mutex

// State is the saved interrupt mask returned by Enter.
type State struct{}

// Enter begins a critical section.
func Enter() State {
	mu.Lock()
	return State{}
}

// Exit ends the section begun by Enter.
func Exit(State) { mu.Unlock() }
