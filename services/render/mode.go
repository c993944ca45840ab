package render

// MapMode is the program selected for the LED strips.
type MapMode int

const (
	ModeOff MapMode = iota
	ModeAlarms
	ModeWeather
	ModeFlag
	ModeRandom
	ModeLamp

	// ModeReconnecting is never selectable; it overrides the resolved mode
	// while the feed is stalled.
	ModeReconnecting MapMode = 1000
)

// SelectableModes is the number of user-selectable map modes.
const SelectableModes = 6

var modeNames = [...]string{"off", "alarms", "weather", "flag", "random", "lamp"}

func (m MapMode) String() string {
	if m == ModeReconnecting {
		return "reconnecting"
	}
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// Valid reports whether m can be stored as the user-selected mode.
func (m MapMode) Valid() bool { return m >= ModeOff && m <= ModeLamp }

// AutoSwitch selects which regions can force the Alarms mode.
type AutoSwitch int

const (
	AutoSwitchOff AutoSwitch = iota
	AutoSwitchNeighbors
	AutoSwitchHome
)

// Flags are the inputs of mode resolution for one render tick.
type Flags struct {
	Selected      MapMode
	MapOff        bool
	Silence       bool // minute of silence
	Anthem        bool
	AutoSwitch    AutoSwitch
	HomeAlarm     bool // home region under alarm
	NeighborAlarm bool // home or any bordering region under alarm
	Reconnecting  bool
}

// ResolveMode picks the single current map mode. Precedence, highest first:
// minute of silence or anthem force Flag; the map-off toggle forces Off; an
// alarm in the watched regions forces Alarms; a stalled feed turns any
// non-Off mode into Reconnecting.
//
// The neighbor watch overrides the map-off toggle while the home-only watch
// does not.
func ResolveMode(f Flags) MapMode {
	var mode MapMode
	switch {
	case f.Silence || f.Anthem:
		mode = ModeFlag
	default:
		mode = f.Selected
		if !mode.Valid() {
			mode = ModeAlarms
		}
		if f.MapOff {
			mode = ModeOff
		}
		switch f.AutoSwitch {
		case AutoSwitchNeighbors:
			if f.NeighborAlarm {
				mode = ModeAlarms
			}
		case AutoSwitchHome:
			if f.HomeAlarm && !f.MapOff {
				mode = ModeAlarms
			}
		}
	}
	if f.Reconnecting && mode != ModeOff {
		return ModeReconnecting
	}
	return mode
}
