package render

import (
	"time"

	"alertmap-go/x/mathx"
)

// Fade returns a triangle wave that rises from 1% of max to max over the
// first half of period and falls back over the second half. It depends only
// on the wall clock, so any sampling rate sees the same curve. A non-zero
// max below minBlink is raised to minBlink.
func Fade(now time.Time, max float64, period time.Duration, minBlink float64) float64 {
	if max > 0 && max < minBlink {
		max = minBlink
	}
	lo := max * 0.01
	us := period.Microseconds()
	if us <= 1 {
		return max
	}
	progress := mathx.Mod(now.UnixMicro(), us)
	half := us / 2
	if progress < half {
		return mathx.Lerp(lo, max, float64(progress)/float64(half))
	}
	return mathx.Lerp(max, lo, float64(progress-half)/float64(us-half))
}
