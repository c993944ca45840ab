// Package platform opens the board peripherals described by a profile:
// LED strips, the alert and clear outputs, buttons, the I2C bus and the
// watchdog. The MCU and host builds live in separate files.
package platform

import (
	"github.com/rs/zerolog"
	"tinygo.org/x/drivers"

	"alertmap-go/services/buttons"
	"alertmap-go/services/controller"
	"alertmap-go/services/display"
	"alertmap-go/services/render"
	"alertmap-go/services/watchdog"
)

// WatchdogTimeoutMs is how long the loop may stall before the board resets.
const WatchdogTimeoutMs = 8000

// Board is the set of opened peripherals. Nil fields are absent.
type Board struct {
	Output   *render.Output
	Display  display.Display
	I2C      drivers.I2C
	AlertPin controller.Pin
	ClearPin controller.Pin
	Buttons  []buttons.Pin
	Watchdog watchdog.Kicker
	Restart  func()
}

// LogDisplay writes screens to the log instead of a panel.
type LogDisplay struct {
	Log zerolog.Logger
}

func (d LogDisplay) Available() bool { return true }

func (d LogDisplay) Draw(s display.Screen) error {
	d.Log.Info().Str("title", s.Title).Str("body", s.Body).Str("footer", s.Footer).Msg("screen")
	return nil
}

func (d LogDisplay) Dim(on bool) error {
	d.Log.Debug().Bool("dim", on).Msg("screen dim")
	return nil
}

// LogPin is an output that only logs level changes.
type LogPin struct {
	Name string
	Log  zerolog.Logger

	high bool
}

func (p *LogPin) Set(high bool) {
	if p.high == high {
		return
	}
	p.high = high
	p.Log.Info().Str("pin", p.Name).Bool("high", high).Msg("pin")
}

func (p *LogPin) High() bool { return p.high }
