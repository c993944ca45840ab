package mathx

import "golang.org/x/exp/constraints"

// Lerp returns a + (b-a)*t. t is not clamped.
func Lerp[T constraints.Float](a, b, t T) T {
	return a + (b-a)*t
}

// Norm returns the position of v within [lo, hi] clamped to [0, 1].
// A degenerate range yields 0.
func Norm[T constraints.Float](v, lo, hi T) T {
	if hi == lo {
		return 0
	}
	return Clamp((v-lo)/(hi-lo), 0, 1)
}
