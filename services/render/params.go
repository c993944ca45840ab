package render

import (
	"time"

	"alertmap-go/services/settings"
)

// Reader is the part of the settings store the renderer reads.
type Reader interface {
	GetInt(settings.Key) int
	GetBool(settings.Key) bool
}

// NotifyMode controls how fresh events are highlighted.
type NotifyMode int

const (
	NotifyOff NotifyMode = iota
	NotifyStatic
	NotifyBlink
)

// Hues of each map state.
type Hues struct {
	Alert, Clear, NewAlert, AlertOver int
	Explosion, Missiles, Drones, Home int
}

// Levels are per-state brightness percentages applied on top of the
// current brightness.
type Levels struct {
	Alert, Clear, NewAlert, AlertOver int
	Explosion, Home, Background, Service int
}

// Params is a settings snapshot for one render pass.
type Params struct {
	Current int // resolved overall brightness, percent
	Home    int // home region

	Hues   Hues
	Levels Levels

	Explosions, Missiles, Drones bool
	Notify                       NotifyMode

	NewAlertWindow  time.Duration
	AlertOverWindow time.Duration
	EventWindow     time.Duration
	BlinkPeriod     time.Duration

	WeatherMin, WeatherMax float64

	Lamp           RGB
	LampBrightness int

	ServiceDiodes bool
}

// ParamsFrom snapshots the render settings. current is the brightness
// picked by brightness resolution.
func ParamsFrom(r Reader, current int) Params {
	return Params{
		Current: current,
		Home:    r.GetInt(settings.HomeRegion),
		Hues: Hues{
			Alert:     r.GetInt(settings.ColorAlert),
			Clear:     r.GetInt(settings.ColorClear),
			NewAlert:  r.GetInt(settings.ColorNewAlert),
			AlertOver: r.GetInt(settings.ColorAlertOver),
			Explosion: r.GetInt(settings.ColorExplosion),
			Missiles:  r.GetInt(settings.ColorMissiles),
			Drones:    r.GetInt(settings.ColorDrones),
			Home:      r.GetInt(settings.ColorHome),
		},
		Levels: Levels{
			Alert:      r.GetInt(settings.BrightnessAlert),
			Clear:      r.GetInt(settings.BrightnessClear),
			NewAlert:   r.GetInt(settings.BrightnessNewAlert),
			AlertOver:  r.GetInt(settings.BrightnessAlertOver),
			Explosion:  r.GetInt(settings.BrightnessExplosion),
			Home:       r.GetInt(settings.BrightnessHome),
			Background: r.GetInt(settings.BrightnessBg),
			Service:    r.GetInt(settings.BrightnessService),
		},
		Explosions:      r.GetBool(settings.EnableExplosions),
		Missiles:        r.GetBool(settings.EnableMissiles),
		Drones:          r.GetBool(settings.EnableDrones),
		Notify:          NotifyMode(r.GetInt(settings.NotifyMode)),
		NewAlertWindow:  time.Duration(r.GetInt(settings.AlertOnMin)) * time.Minute,
		AlertOverWindow: time.Duration(r.GetInt(settings.AlertOffMin)) * time.Minute,
		EventWindow:     time.Duration(r.GetInt(settings.ExplosionMin)) * time.Minute,
		BlinkPeriod:     time.Duration(r.GetInt(settings.AlertBlinkSec)) * time.Second,
		WeatherMin:      float64(r.GetInt(settings.WeatherMinTemp)),
		WeatherMax:      float64(r.GetInt(settings.WeatherMaxTemp)),
		Lamp: RGB{
			R: uint8(r.GetInt(settings.LampR)),
			G: uint8(r.GetInt(settings.LampG)),
			B: uint8(r.GetInt(settings.LampB)),
		},
		LampBrightness: r.GetInt(settings.LampBrightness),
		ServiceDiodes:  r.GetBool(settings.ServiceDiodesMode),
	}
}
