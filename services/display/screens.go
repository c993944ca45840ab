package display

import (
	"strconv"
	"time"

	"alertmap-go/x/timex"
)

// Tech is the input of the rotating technical panel. The signal slot is
// only shown when HasRSSI is set.
type Tech struct {
	IP            string
	RSSI          int
	HasRSSI       bool
	Uptime        time.Duration
	FeedConnected bool
	HAConnected   bool
	Firmware      string
}

// Climate holds corrected local sensor readings.
type Climate struct {
	Temp, Hum, Press          float64
	HasTemp, HasHum, HasPress bool
}

func (c Climate) Any() bool { return c.HasTemp || c.HasHum || c.HasPress }

// Toggle lists the sub-screens enabled for the toggle program.
type Toggle struct {
	Weather, Temp, Hum, Press bool
}

// FirmwareNotice describes a pending update.
type FirmwareNotice struct {
	Enabled   bool
	Available bool
	Version   string
	IP        string
	Button    bool
}

// Context is everything one display tick looks at.
type Context struct {
	Now time.Time

	Anthem  bool
	Silence bool

	HomeAlarm     bool
	ShowAlarmTime bool
	HomeSince     time.Time
	HomeName      string

	Off      bool
	Firmware FirmwareNotice

	Mode       Mode
	SlotPeriod int // seconds per sub-screen

	HomeTemp      float64
	HomeTempKnown bool

	Tech    Tech
	Climate Climate
	Toggle  Toggle
}

// Screen evaluates the priority rules for c.
func (m *Machine) Screen(c Context) Screen {
	if !m.msg.Until.IsZero() && !m.msg.Expired(c.Now) {
		return Screen{Source: SourceService, Title: m.msg.Title, Body: m.msg.Body}
	}
	if c.Anthem {
		return silenceScreen(1, SourceAnthem)
	}
	if c.Silence {
		return silenceScreen(Slot(3, 3, c.Now), SourceSilence)
	}
	if c.HomeAlarm && c.ShowAlarmTime {
		return homeAlarmScreen(c)
	}
	if c.Off {
		return Screen{Source: SourceOff}
	}
	if c.Firmware.Enabled && c.Firmware.Available {
		return firmwareScreen(c)
	}
	return modeScreen(c)
}

func silenceScreen(idx int, src Source) Screen {
	s := Screen{Source: src, Icon: IconTrident}
	switch idx {
	case 0:
		s.Title, s.Body = "Honor to the", "fallen heroes"
	case 1:
		s.Title, s.Body = "Glory to", "Ukraine!"
	default:
		s.Title, s.Body = "Death to", "the enemies!"
	}
	return s
}

func homeAlarmScreen(c Context) Screen {
	title := "Alarm lasts:"
	if Slot(c.SlotPeriod, 2, c.Now) == 1 {
		title = c.HomeName
	}
	var elapsed time.Duration
	if d, ok := timex.Since(c.Now, c.HomeSince); ok {
		elapsed = d
	}
	return Screen{Source: SourceHomeAlarm, Title: title, Body: timex.FormatDuration(elapsed)}
}

func firmwareScreen(c Context) Screen {
	s := Screen{Source: SourceFirmware}
	switch {
	case Slot(c.SlotPeriod, 2, c.Now) == 1:
		s.Title, s.Body = "Update available:", c.Firmware.Version
	case c.Firmware.Button:
		s.Title, s.Body = "To update press", "and hold button"
	default:
		s.Title, s.Body = "Open in browser:", c.Firmware.IP
	}
	return s
}

func modeScreen(c Context) Screen {
	switch c.Mode {
	case ModeClock:
		return clockScreen(c.Now)
	case ModeTemp:
		return tempScreen(c)
	case ModeTech:
		return techScreen(c)
	case ModeClimate:
		return climateScreen(c)
	case ModeToggle:
		return toggleScreen(c)
	}
	return Screen{}
}

func clockScreen(now time.Time) Screen {
	div := ":"
	if now.Second()%2 == 1 {
		div = " "
	}
	return Screen{
		Title: now.Format("Mon 02.01.2006"),
		Body:  pad2(now.Hour()) + div + pad2(now.Minute()),
	}
}

func tempScreen(c Context) Screen {
	body := "--"
	if c.HomeTempKnown {
		body = celsius(c.HomeTemp)
	}
	return Screen{Title: c.HomeName, Body: body}
}

type techKind uint8

const (
	techIP techKind = iota
	techSignal
	techUptime
	techFeed
	techHA
	techFirmware
)

func techScreens(t Tech) []techKind {
	if t.HasRSSI {
		return []techKind{techIP, techSignal, techUptime, techFeed, techHA, techFirmware}
	}
	return []techKind{techIP, techUptime, techFeed, techHA, techFirmware}
}

func techScreen(c Context) Screen {
	t := c.Tech
	kinds := techScreens(t)
	switch kinds[Slot(c.SlotPeriod, len(kinds), c.Now)] {
	case techIP:
		return Screen{Title: "Map IP address:", Body: t.IP}
	case techSignal:
		return Screen{Title: "WiFi signal:", Body: strconv.Itoa(t.RSSI) + " dBm"}
	case techUptime:
		return Screen{Title: "Uptime:", Body: timex.FormatDuration(t.Uptime)}
	case techFeed:
		return Screen{Title: "Map API:", Body: connected(t.FeedConnected)}
	case techHA:
		return Screen{Title: "Home Assistant:", Body: connected(t.HAConnected)}
	default:
		return Screen{Title: "Firmware:", Body: t.Firmware}
	}
}

type climateKind uint8

const (
	climateTemp climateKind = iota
	climateHum
	climatePress
)

func climateScreens(cl Climate) []climateKind {
	out := make([]climateKind, 0, 3)
	if cl.HasTemp {
		out = append(out, climateTemp)
	}
	if cl.HasHum {
		out = append(out, climateHum)
	}
	if cl.HasPress {
		out = append(out, climatePress)
	}
	return out
}

func climateScreen(c Context) Screen {
	list := climateScreens(c.Climate)
	if len(list) == 0 {
		return Screen{}
	}
	return climateValue(c.Climate, list[Slot(c.SlotPeriod, len(list), c.Now)])
}

func climateValue(cl Climate, k climateKind) Screen {
	switch k {
	case climateTemp:
		return Screen{Title: "Temperature", Body: celsius(cl.Temp)}
	case climateHum:
		return Screen{Title: "Humidity", Body: fixed1(cl.Hum) + "%"}
	default:
		return Screen{Title: "Pressure", Body: fixed1(cl.Press) + "mmHg"}
	}
}

// toggleScreen cycles Clock, Weather, Temp, Humidity and Pressure, leaving
// out sub-screens that are disabled or have no sensor. Weather is also shown
// when no sensor is present at all.
func toggleScreen(c Context) Screen {
	type sub func() Screen
	list := []sub{func() Screen { return clockScreen(c.Now) }}
	if c.Toggle.Weather || !c.Climate.Any() {
		list = append(list, func() Screen { return tempScreen(c) })
	}
	if c.Toggle.Temp && c.Climate.HasTemp {
		list = append(list, func() Screen { return climateValue(c.Climate, climateTemp) })
	}
	if c.Toggle.Hum && c.Climate.HasHum {
		list = append(list, func() Screen { return climateValue(c.Climate, climateHum) })
	}
	if c.Toggle.Press && c.Climate.HasPress {
		list = append(list, func() Screen { return climateValue(c.Climate, climatePress) })
	}
	return list[Slot(c.SlotPeriod, len(list), c.Now)]()
}

func connected(ok bool) string {
	if ok {
		return "Connected"
	}
	return "Disconnected"
}

func celsius(v float64) string { return fixed1(v) + "°C" }

func fixed1(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) }

func pad2(v int) string {
	if v < 10 {
		return "0" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}
