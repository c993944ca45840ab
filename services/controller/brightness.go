package controller

import (
	"math"

	"alertmap-go/x/mathx"
)

// AutoBrightness selects how the current brightness is derived.
type AutoBrightness int

const (
	AutoBrightnessOff AutoBrightness = iota
	AutoBrightnessDayNight
	AutoBrightnessSensor
)

var autoBrightnessNames = [...]string{"Off", "Day/Night", "Light sensor"}

func (m AutoBrightness) String() string {
	if m >= 0 && int(m) < len(autoBrightnessNames) {
		return autoBrightnessNames[m]
	}
	return "unknown"
}

func (m AutoBrightness) Valid() bool { return m >= AutoBrightnessOff && m <= AutoBrightnessSensor }

const (
	// LevelCount is the number of light-sensor brightness steps.
	LevelCount = 20
	// NightLevel is the highest sensor step still treated as night.
	NightLevel = 2
	// luxCeiling is a very bright indoor room; anything above reads as the top step.
	luxCeiling = 500
)

// Distribute spreads LevelCount brightness steps evenly between night and
// day. The last step is always exactly the brighter of the two.
func Distribute(day, night int) []int {
	lo, hi := min(day, night), max(day, night)
	step := float64(hi-lo) / float64(LevelCount-1)
	out := make([]int, LevelCount)
	for i := range out {
		out[i] = int(math.Round(float64(lo) + float64(i)*step))
	}
	out[LevelCount-1] = hi
	return out
}

// SensorLevel maps a lux reading onto 0..LevelCount-1.
func SensorLevel(lux float64) int {
	return mathx.MapRange(int(math.Round(lux)), 0, luxCeiling, 0, LevelCount-1)
}

// IsNight reports whether hour falls in the night window. Equal start hours
// mean it is always day.
func IsNight(hour, dayStart, nightStart int) bool {
	switch {
	case dayStart == nightStart:
		return false
	case nightStart > dayStart:
		return hour >= nightStart || hour < dayStart
	default:
		return hour >= nightStart && hour < dayStart
	}
}

// Inputs are the observations brightness resolution depends on.
type Inputs struct {
	Night      bool // manual night mode
	Mode       AutoBrightness
	Hour       int
	DayStart   int
	NightStart int
	Sensor     bool // light sensor present
	Lux        float64
}

// Resolve picks a brightness with precedence manual night > time of day >
// light sensor > static. With nil levels the sensor only chooses between
// day and night. A missing sensor reads as the darkest step.
func Resolve(in Inputs, static, day, night int, levels []int) int {
	if in.Night {
		return night
	}
	switch in.Mode {
	case AutoBrightnessDayNight:
		if IsNight(in.Hour, in.DayStart, in.NightStart) {
			return night
		}
		return day
	case AutoBrightnessSensor:
		level := 0
		if in.Sensor {
			level = SensorLevel(in.Lux)
		}
		if len(levels) == LevelCount {
			return levels[level]
		}
		if level <= NightLevel {
			return night
		}
		return day
	}
	return static
}
