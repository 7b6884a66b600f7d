// Package key centralizes the constraint and arithmetic helpers shared by
// every index engine in the module: the unsigned-integer key bound itself,
// and the widening/saturating conversions the learned engines (RMI,
// FITing-Tree, RadixSpline) need when mixing integer keys with float64
// model arithmetic.
package key

import "golang.org/x/exp/constraints"

// Unsigned is the key bound every engine in this module is parameterised
// over. The reference engines assume a total order, subtraction to a
// non-negative magnitude, and a widening conversion to a real number for
// use inside learned models; constraints.Unsigned gives us all three for
// free since unsigned subtraction never needs sign handling.
type Unsigned interface {
	constraints.Unsigned
}

// ToFloat64 widens a key to a float64 for use in linear-model arithmetic.
func ToFloat64[K Unsigned](k K) float64 {
	return float64(k)
}

// Magnitude returns |a - b| without risking the wraparound an unsigned
// subtraction would otherwise produce when a < b.
func Magnitude[K Unsigned](a, b K) K {
	if a >= b {
		return a - b
	}
	return b - a
}

// Clamp restricts v to the inclusive range [lo, hi]. Callers are
// responsible for ensuring lo <= hi.
func Clamp[N constraints.Integer](v, lo, hi N) N {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
