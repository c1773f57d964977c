package mathx

import (
	"time"

	"golang.org/x/exp/constraints"
)

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Max returns the larger of a and b.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// OrDefault returns def when v is the zero value, otherwise v.
func OrDefault[T constraints.Ordered](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// ClampDuration sanitises a configured duration: zero selects def, anything
// else is limited to [lo, hi].
func ClampDuration(v, def, lo, hi time.Duration) time.Duration {
	return Clamp(OrDefault(v, def), lo, hi)
}
