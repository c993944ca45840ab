// Package topology maps logical regions to physical LED positions.
//
// Regions 0..24 sit on a ring of 25 LEDs rotated by a board-specific offset.
// Region 25 (the capital city) always occupies LED 25. In the KyivMerged
// variant the capital shares the LED of its surrounding oblast (region 7).
package topology

import (
	"time"

	"alertmap-go/x/mathx"
)

const (
	N             = 26 // regions and LED slots
	Capital       = 25
	CapitalOblast = 7

	ring = N - 1
)

// KyivMergeMode is the kyiv-mode setting value that selects KyivMerged.
const KyivMergeMode = 4

type Variant uint8

const (
	Standard Variant = iota
	KyivMerged
)

func (v Variant) String() string {
	if v == KyivMerged {
		return "kyiv-merged"
	}
	return "standard"
}

// VariantFor returns the topology variant for a kyiv-mode setting.
func VariantFor(kyivMode int) Variant {
	if kyivMode == KyivMergeMode {
		return KyivMerged
	}
	return Standard
}

// OffsetForLegacy returns the ring offset of a legacy board layout.
// Only the transcarpathia layout (1) starts the ring at LED 0.
func OffsetForLegacy(legacy int) int {
	if legacy == 1 {
		return 0
	}
	return 9
}

// Valid reports whether r is a region index.
func Valid(r int) bool { return r >= 0 && r < N }

// ToLED returns the LED index of region under offset, or -1 when region is
// out of range.
func ToLED(region, offset int) int {
	switch {
	case !Valid(region):
		return -1
	case region == Capital:
		return Capital
	}
	return mathx.Mod(region+offset, ring)
}

// ToRegion is the inverse of ToLED.
func ToRegion(led, offset int) int {
	switch {
	case !Valid(led):
		return -1
	case led == Capital:
		return Capital
	}
	return mathx.Mod(led-offset, ring)
}

// Mapper binds the topology parameters read from settings.
type Mapper struct {
	Offset  int
	Variant Variant
}

// LED returns the LED that displays region.
func (m Mapper) LED(region int) int {
	if m.Variant == KyivMerged && region == Capital {
		region = CapitalOblast
	}
	return ToLED(region, m.Offset)
}

// HomeLED is the LED that shows the home region (also mirrored on the
// background strip).
func (m Mapper) HomeLED(home int) int { return m.LED(home) }

// Dark reports whether led carries no region in this variant.
func (m Mapper) Dark(led int) bool {
	return m.Variant == KyivMerged && led == Capital
}

// -----------------------------------------------------------------------------
// Render view
// -----------------------------------------------------------------------------

// Cell is the render-time state of one LED.
type Cell struct {
	Active    bool
	Since     time.Time
	Explosion time.Time
	Missile   time.Time
	Drone     time.Time
	Temp      float64
	TempKnown bool
}

// Source yields the canonical state of a region.
type Source interface {
	Cell(region int) Cell
}

// View is an LED-indexed copy of region state.
type View [N]Cell

// View builds the render copy. Under KyivMerged the capital is folded into
// the oblast LED and LED 25 stays empty. The source is never written.
func (m Mapper) View(src Source) View {
	var v View
	for r := 0; r < N; r++ {
		v[ToLED(r, m.Offset)] = src.Cell(r)
	}
	if m.Variant != KyivMerged {
		return v
	}
	oblast := ToLED(CapitalOblast, m.Offset)
	v[oblast] = Merge(v[oblast], v[Capital])
	v[Capital] = Cell{}
	return v
}

// Merge combines two cells that share one LED: alarm flags are OR-ed and
// every timestamp takes the later value. Temperatures are averaged.
func Merge(a, b Cell) Cell {
	out := Cell{
		Active:    a.Active || b.Active,
		Since:     later(a.Since, b.Since),
		Explosion: later(a.Explosion, b.Explosion),
		Missile:   later(a.Missile, b.Missile),
		Drone:     later(a.Drone, b.Drone),
	}
	switch {
	case a.TempKnown && b.TempKnown:
		out.Temp, out.TempKnown = (a.Temp+b.Temp)/2, true
	case a.TempKnown:
		out.Temp, out.TempKnown = a.Temp, true
	case b.TempKnown:
		out.Temp, out.TempKnown = b.Temp, true
	}
	return out
}

func later(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
