package render

import (
	"math"

	"alertmap-go/types"
	"alertmap-go/x/mathx"
)

// RGB is one pixel in wire order.
type RGB struct{ R, G, B uint8 }

var (
	Black  = RGB{}
	Red    = RGB{255, 0, 0}
	Green  = RGB{0, 255, 0}
	Blue   = RGB{0, 0, 255}
	Yellow = RGB{255, 255, 0}
	White  = RGB{255, 255, 255}
)

// HueToRGB converts a hue in degrees to a fully saturated color. Any int is
// accepted and wrapped to 0..359.
func HueToRGB(hue int) RGB {
	h := mathx.Mod(hue, 360)
	sector := h / 60
	f := h % 60
	rise := uint8(f * 255 / 60)
	fall := 255 - rise
	switch sector {
	case 0:
		return RGB{255, rise, 0}
	case 1:
		return RGB{fall, 255, 0}
	case 2:
		return RGB{0, 255, rise}
	case 3:
		return RGB{0, fall, 255}
	case 4:
		return RGB{rise, 0, 255}
	default:
		return RGB{255, 0, fall}
	}
}

// Scale8Video scales c by scale/256 but never rounds a lit channel down to
// zero: a non-zero channel with a non-zero scale stays at least 1.
func Scale8Video(c, scale uint8) uint8 {
	j := uint8((uint16(c) * uint16(scale)) >> 8)
	if c != 0 && scale != 0 {
		j++
	}
	return j
}

func (c RGB) ScaleVideo(scale uint8) RGB {
	return RGB{Scale8Video(c.R, scale), Scale8Video(c.G, scale), Scale8Video(c.B, scale)}
}

func (c RGB) IsBlack() bool { return c == Black }

// Palette turns brightness percentages into strip scale factors for one
// board.
type Palette struct {
	Factor        float64 // global multiplier, 0..1
	MinBrightness float64 // floor in percent for any lit pixel
	MinBlink      float64 // floor for the fade maximum, as a fraction
}

// DefaultPalette matches boards without a profile override.
var DefaultPalette = Palette{Factor: 0.5, MinBrightness: 1, MinBlink: 0.05}

// PaletteFor reads the scaling parameters of a board profile, falling back
// to DefaultPalette for unset fields.
func PaletteFor(p types.BoardProfile) Palette {
	out := DefaultPalette
	if p.BrightnessFactor > 0 {
		out.Factor = p.BrightnessFactor
	}
	if p.MinBrightness > 0 {
		out.MinBrightness = float64(p.MinBrightness)
	}
	if p.MinBlink > 0 {
		out.MinBlink = p.MinBlink
	}
	return out
}

// Scale maps a brightness percentage to an 8-bit scale. The result is zero
// only for a zero (or negative) brightness; any positive brightness yields
// at least 1.
func (p Palette) Scale(brightness float64) uint8 {
	if brightness <= 0 || math.IsNaN(brightness) {
		return 0
	}
	v := math.Round(math.Max(brightness, p.MinBrightness) * 255 / 100 * p.Factor)
	return uint8(mathx.Clamp(v, 1, 255))
}

func (p Palette) FromRGB(c RGB, brightness float64) RGB {
	return c.ScaleVideo(p.Scale(brightness))
}

func (p Palette) FromHue(hue int, brightness float64) RGB {
	return p.FromRGB(HueToRGB(hue), brightness)
}
