// Package display selects what the status screen shows. Selection is a pure
// function of a Context evaluated on every display tick; the only state
// kept between ticks is the transient service message.
package display

import (
	"time"

	"github.com/rs/zerolog"

	"alertmap-go/x/timex"
)

// Mode is the user-selected display program.
type Mode int

const (
	ModeOff     Mode = 0
	ModeClock   Mode = 1
	ModeTemp    Mode = 2
	ModeTech    Mode = 3
	ModeClimate Mode = 4
	ModeToggle  Mode = 9
)

// Modes in selection order.
var Modes = []Mode{ModeOff, ModeClock, ModeTemp, ModeTech, ModeClimate, ModeToggle}

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeClock:
		return "clock"
	case ModeTemp:
		return "temperature"
	case ModeTech:
		return "tech info"
	case ModeClimate:
		return "climate"
	case ModeToggle:
		return "toggle"
	}
	return "unknown"
}

func (m Mode) Valid() bool {
	for _, x := range Modes {
		if x == m {
			return true
		}
	}
	return false
}

// Available reports whether m can be selected on this device.
func (m Mode) Available(climate bool) bool {
	return m.Valid() && (m != ModeClimate || climate)
}

// Next returns the mode after m, skipping unavailable ones.
func Next(m Mode, climate bool) Mode {
	idx := 0
	for i, x := range Modes {
		if x == m {
			idx = i
			break
		}
	}
	for step := 1; step <= len(Modes); step++ {
		cand := Modes[(idx+step)%len(Modes)]
		if cand.Available(climate) {
			return cand
		}
	}
	return ModeOff
}

// Slot returns the active sub-screen index: the wall-clock second divided
// into period-long slots, wrapped over count. Invalid inputs yield 0.
func Slot(period, count int, now time.Time) int {
	if period <= 0 || count <= 0 {
		return 0
	}
	return int((now.Unix() / int64(period)) % int64(count))
}

// -----------------------------------------------------------------------------
// Screen
// -----------------------------------------------------------------------------

type Icon uint8

const (
	IconNone Icon = iota
	IconTrident
)

// Source names the rule that produced a screen.
type Source uint8

const (
	SourceMode Source = iota
	SourceService
	SourceAnthem
	SourceSilence
	SourceHomeAlarm
	SourceOff
	SourceFirmware
)

type Screen struct {
	Source Source
	Icon   Icon
	Title  string
	Body   string
	Footer string
}

func (s Screen) Blank() bool {
	return s.Icon == IconNone && s.Title == "" && s.Body == "" && s.Footer == ""
}

// -----------------------------------------------------------------------------
// Service message
// -----------------------------------------------------------------------------

// ServiceMessage is a short-lived notice that overrides everything else.
type ServiceMessage struct {
	Title string
	Body  string
	Until time.Time
}

// Expired reports whether the message is no longer shown at now.
func (m ServiceMessage) Expired(now time.Time) bool {
	return !now.Before(m.Until)
}

// Display is the status screen driver.
type Display interface {
	Available() bool
	Draw(Screen) error
	Dim(bool) error
}

// Machine keeps the current service message and what was last drawn.
type Machine struct {
	clock timex.Clock
	log   zerolog.Logger
	msg   ServiceMessage

	last   Screen
	drawn  bool
	dimmed bool
	dimSet bool
}

func NewMachine(clock timex.Clock, log zerolog.Logger) *Machine {
	if clock == nil {
		clock = timex.System{}
	}
	return &Machine{clock: clock, log: log.With().Str("svc", "display").Logger()}
}

// Update selects the screen for c and pushes it to d. Unchanged screens and
// dim levels are not redrawn.
func (m *Machine) Update(d Display, c Context, dim bool) Screen {
	s := m.Screen(c)
	if d == nil || !d.Available() {
		return s
	}
	if !m.dimSet || dim != m.dimmed {
		if err := d.Dim(dim); err != nil {
			m.log.Warn().Err(err).Msg("dim failed")
		} else {
			m.dimmed, m.dimSet = dim, true
		}
	}
	if m.drawn && s == m.last {
		return s
	}
	if err := d.Draw(s); err != nil {
		m.log.Warn().Err(err).Msg("draw failed")
		return s
	}
	m.last, m.drawn = s, true
	return s
}

// Show replaces the service message; it is shown for d from now.
func (m *Machine) Show(title, body string, d time.Duration) {
	m.msg = ServiceMessage{Title: title, Body: body, Until: m.clock.Now().Add(d)}
}

// Message returns the current service message, expired or not.
func (m *Machine) Message() ServiceMessage { return m.msg }
