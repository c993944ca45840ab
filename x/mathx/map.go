package mathx

import "golang.org/x/exp/constraints"

// MapRange maps x in [inMin,inMax] to [outMin,outMax] with 64-bit
// intermediates. Clamps to the out range if input is outside.
func MapRange[T constraints.Integer](x, inMin, inMax, outMin, outMax T) T {
	if inMax == inMin {
		return outMin
	}
	if x <= inMin {
		return outMin
	}
	if x >= inMax {
		return outMax
	}
	num := (int64(x) - int64(inMin)) * (int64(outMax) - int64(outMin))
	den := int64(inMax) - int64(inMin)
	return T(int64(outMin) + num/den)
}

// Mod returns the non-negative remainder of a/b.
func Mod[T constraints.Signed](a, b T) T {
	if b == 0 {
		return 0
	}
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
