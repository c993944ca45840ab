// Package render turns region state and settings into LED colors for the
// main, background and service strips.
package render

import (
	"math"
	"math/rand"
	"time"

	"alertmap-go/services/topology"
	"alertmap-go/x/mathx"
)

// Fixed hues of the non-map modes.
const (
	hueReconnect = 64
	weatherCold  = 275
	weatherHot   = 0
)

// ServicePixels is the length of the status strip.
const ServicePixels = 5

// ServiceStatus drives the status strip, one pixel per flag.
type ServiceStatus struct {
	Power    bool
	WiFi     bool
	Data     bool
	HA       bool
	Reserved bool
}

var serviceColors = [ServicePixels]RGB{Red, Blue, Green, Yellow, White}

// Input is everything one render pass reads.
type Input struct {
	Now     time.Time
	Mode    MapMode
	View    topology.View
	Params  Params
	Service ServiceStatus
}

// Frame holds the strip buffers of one pass. The slices belong to the
// engine and stay valid until the next Render.
type Frame struct {
	Mode       MapMode
	Main       []RGB
	Background []RGB
	Service    []RGB
}

// Layout is the strip geometry of a board. Zero lengths mean "absent".
type Layout struct {
	Main       int
	Background int
	Service    int
}

type Engine struct {
	palette Palette
	mapper  topology.Mapper
	rng     *rand.Rand

	main    []RGB
	bg      []RGB
	service []RGB
}

func NewEngine(layout Layout, palette Palette, mapper topology.Mapper, seed int64) *Engine {
	e := &Engine{
		palette: palette,
		mapper:  mapper,
		rng:     rand.New(rand.NewSource(seed)),
		main:    make([]RGB, max(layout.Main, 0)),
		bg:      make([]RGB, max(layout.Background, 0)),
	}
	if layout.Service > 0 {
		e.service = make([]RGB, ServicePixels)
	}
	return e
}

// SetMapper swaps topology parameters after a settings change.
func (e *Engine) SetMapper(m topology.Mapper) { e.mapper = m }

func (e *Engine) Mapper() topology.Mapper { return e.mapper }

func (e *Engine) Palette() Palette { return e.palette }

// Render fills the buffers for in.Mode. It never fails; absent strips are
// skipped.
func (e *Engine) Render(in Input) Frame {
	p := in.Params
	bgLevel := float64(p.Levels.Background) / 100

	switch in.Mode {
	case ModeOff:
		fill(e.main, Black)
		fill(e.bg, Black)
	case ModeAlarms:
		e.renderAlarms(in)
	case ModeWeather:
		e.eachLED(in.View, func(led int, c topology.Cell) RGB {
			if !c.TempKnown {
				return Black
			}
			return e.palette.FromHue(weatherHue(c.Temp, p), float64(p.Current))
		})
		home := in.View[e.mapper.HomeLED(p.Home)]
		if home.TempKnown {
			fill(e.bg, e.palette.FromHue(weatherHue(home.Temp, p), float64(p.Current)*bgLevel))
		} else {
			fill(e.bg, Black)
		}
	case ModeFlag:
		e.eachLED(in.View, func(led int, _ topology.Cell) RGB {
			r := topology.ToRegion(led, e.mapper.Offset)
			return e.palette.FromHue(topology.FlagHues[r], float64(p.Current))
		})
		fill(e.bg, e.palette.FromHue(topology.FlagBlue, float64(p.Current)*bgLevel))
	case ModeRandom:
		if len(e.main) > 0 {
			e.main[e.rng.Intn(len(e.main))] = e.palette.FromHue(e.rng.Intn(360), float64(p.Current))
		}
		if len(e.bg) > 0 {
			e.bg[e.rng.Intn(len(e.bg))] = e.palette.FromHue(e.rng.Intn(360), float64(p.Current)*bgLevel)
		}
	case ModeLamp:
		fill(e.main, e.palette.FromRGB(p.Lamp, float64(p.LampBrightness)))
		fill(e.bg, e.palette.FromRGB(p.Lamp, float64(p.LampBrightness)*bgLevel))
	case ModeReconnecting:
		level := Fade(in.Now, float64(p.Current)/200, p.BlinkPeriod, e.palette.MinBlink) * float64(p.Current)
		fill(e.main, e.palette.FromHue(hueReconnect, level))
		fill(e.bg, e.palette.FromHue(hueReconnect, level*bgLevel))
	}

	if e.service != nil {
		e.renderService(in.Service, p)
	}
	return Frame{Mode: in.Mode, Main: e.main, Background: e.bg, Service: e.service}
}

// eachLED paints every main pixel that carries a region. Dark pixels and
// pixels past the map are cleared.
func (e *Engine) eachLED(v topology.View, fn func(led int, c topology.Cell) RGB) {
	for i := range e.main {
		if i >= topology.N || e.mapper.Dark(i) {
			e.main[i] = Black
			continue
		}
		e.main[i] = fn(i, v[i])
	}
}

func (e *Engine) renderAlarms(in Input) {
	p := in.Params
	blink := float64(p.Current) / 100
	notify := blink
	if p.Notify == NotifyBlink {
		blink = Fade(in.Now, blink, p.BlinkPeriod, e.palette.MinBlink)
		notify = Fade(in.Now, notify, p.BlinkPeriod/2, e.palette.MinBlink)
	}
	home := e.mapper.HomeLED(p.Home)
	for i := range e.main {
		if i >= topology.N || e.mapper.Dark(i) {
			e.main[i] = Black
			continue
		}
		e.main[i] = e.alarmColor(in.Now, in.View[i], i == home, false, blink, notify, p)
	}
	if len(e.bg) > 0 && topology.Valid(home) {
		fill(e.bg, e.alarmColor(in.Now, in.View[home], true, true, blink, notify, p))
	}
}

// alarmColor arbitrates one LED: explosion, missile and drone events win
// over the alarm state, in that order, while inside their window.
func (e *Engine) alarmColor(now time.Time, c topology.Cell, isHome, isBg bool, blink, notify float64, p Params) RGB {
	notifying := p.Notify > NotifyOff
	eventLevel := notify * float64(p.Levels.Explosion)

	if notifying {
		switch {
		case p.Explosions && within(now, c.Explosion, p.EventWindow):
			return e.palette.FromHue(p.Hues.Explosion, eventLevel)
		case p.Missiles && within(now, c.Missile, p.EventWindow):
			return e.palette.FromHue(p.Hues.Missiles, eventLevel)
		case p.Drones && within(now, c.Drone, p.EventWindow):
			return e.palette.FromHue(p.Hues.Drones, eventLevel)
		}
	}

	level := func(tier int) float64 {
		if isBg {
			tier = p.Levels.Background
		}
		return float64(p.Current) * float64(tier) / 100
	}

	if c.Active {
		if notifying && within(now, c.Since, p.NewAlertWindow) {
			return e.palette.FromHue(p.Hues.NewAlert, blink*float64(p.Levels.NewAlert))
		}
		return e.palette.FromHue(p.Hues.Alert, level(p.Levels.Alert))
	}
	if notifying && within(now, c.Since, p.AlertOverWindow) {
		return e.palette.FromHue(p.Hues.AlertOver, blink*float64(p.Levels.AlertOver))
	}
	if isHome {
		return e.palette.FromHue(p.Hues.Home, level(p.Levels.Home))
	}
	return e.palette.FromHue(p.Hues.Clear, level(p.Levels.Clear))
}

func (e *Engine) renderService(s ServiceStatus, p Params) {
	if !p.ServiceDiodes {
		fill(e.service, Black)
		return
	}
	scale := e.palette.Scale(float64(p.Levels.Service))
	for i, on := range [ServicePixels]bool{s.Power, s.WiFi, s.Data, s.HA, s.Reserved} {
		if on {
			e.service[i] = serviceColors[i].ScaleVideo(scale)
		} else {
			e.service[i] = Black
		}
	}
}

// within reports whether at is set and now-at is shorter than window.
func within(now, at time.Time, window time.Duration) bool {
	if at.IsZero() {
		return false
	}
	return now.Sub(at) < window
}

// weatherHue maps temperature onto 275° (cold) .. 0° (hot).
func weatherHue(temp float64, p Params) int {
	norm := mathx.Norm(temp, p.WeatherMin, p.WeatherMax)
	hue := int(math.Round(mathx.Lerp(float64(weatherCold), float64(weatherHot), norm)))
	return mathx.Mod(hue, 360)
}

func fill(buf []RGB, c RGB) {
	for i := range buf {
		buf[i] = c
	}
}
