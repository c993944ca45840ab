// Package controller owns every user-facing mutation of the appliance: map
// and display modes, brightness, lamp, home region, night mode, pins and
// buttons. All methods run on the control loop goroutine.
package controller

import (
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"alertmap-go/bus"
	"alertmap-go/errcode"
	"alertmap-go/services/display"
	"alertmap-go/services/feed"
	"alertmap-go/services/firmware"
	"alertmap-go/services/regions"
	"alertmap-go/services/render"
	"alertmap-go/services/scheduler"
	"alertmap-go/services/settings"
	"alertmap-go/services/topology"
	"alertmap-go/types"
	"alertmap-go/x/mathx"
	"alertmap-go/x/timex"
)

// TopicFirmwareUpdate carries types.FirmwareUpdate requests.
var TopicFirmwareUpdate = bus.T("firmware", "update")

const (
	messageTime      = 2 * time.Second
	shortMessageTime = time.Second
	alarmMessageTime = 5 * time.Second
	rebootDelay      = 2 * time.Second
)

// Notifier shows transient service messages.
type Notifier interface {
	Show(title, body string, d time.Duration)
}

// Pin is a digital output. A nil Pin is not wired.
type Pin interface {
	Set(high bool)
}

// LightSensor reports the last ambient light reading.
type LightSensor interface {
	Available() bool
	Lux() float64
}

type Rebooter interface {
	Reboot(reason string, delay time.Duration)
}

// UpdateNotice reports whether newer firmware exists.
type UpdateNotice interface {
	UpdateAvailable() bool
	Latest() firmware.Version
}

// Deps wires the controller. Store, Regions and Scheduler are required;
// everything else may be nil when the board lacks the capability.
type Deps struct {
	Store     *settings.Store
	Regions   *regions.Store
	Scheduler *scheduler.Scheduler
	Clock     timex.Clock
	Conn      *bus.Connection
	Notifier  Notifier
	AlertPin  Pin
	ClearPin  Pin
	Light     LightSensor
	Rebooter  Rebooter
	Firmware  UpdateNotice
	Location  *time.Location
	Climate   bool // climate sensors present
	Log       zerolog.Logger

	// OnRender is called when a change needs the map redrawn now.
	OnRender func()
}

type Controller struct {
	store  *settings.Store
	reg    *regions.Store
	sched  *scheduler.Scheduler
	clock  timex.Clock
	conn   *bus.Connection
	notify Notifier
	alert  Pin
	clear  Pin
	light  LightSensor
	reboot Rebooter
	fw     UpdateNotice
	loc    *time.Location
	log    zerolog.Logger

	climate  bool
	onRender func()

	prevMapMode render.MapMode
	night       bool
	mapOff      bool
	displayOff  bool
	levels      []int

	alarmNow      bool
	homeExplosion time.Time
	fetched       bool

	pinAlarm     bool
	alertHigh    bool
	clearHigh    bool
	alertRelease scheduler.Handle
	clearRelease scheduler.Handle

	silence bool
	anthem  bool
}

func New(d Deps) *Controller {
	if d.Clock == nil {
		d.Clock = timex.System{}
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	c := &Controller{
		store:       d.Store,
		reg:         d.Regions,
		sched:       d.Scheduler,
		clock:       d.Clock,
		conn:        d.Conn,
		notify:      d.Notifier,
		alert:       d.AlertPin,
		clear:       d.ClearPin,
		light:       d.Light,
		reboot:      d.Rebooter,
		fw:          d.Firmware,
		loc:         d.Location,
		log:         d.Log.With().Str("svc", "controller").Logger(),
		climate:     d.Climate,
		onRender:    d.OnRender,
		prevMapMode: render.ModeAlarms,
	}
	c.levels = Distribute(c.store.GetInt(settings.BrightnessDay), c.store.GetInt(settings.BrightnessNight))
	return c
}

// -----------------------------------------------------------------------------
// Setting contract
// -----------------------------------------------------------------------------

// Effect is a side effect run after a setting changed.
type Effect uint8

const (
	Rerender   Effect = 1 << iota // redraw the map now
	Rebright                      // re-derive the current brightness
	Relevel                       // redistribute sensor brightness levels
	Announce                      // show the setting's service message
)

// Setting describes one persisted, user-settable property.
type Setting[T comparable] struct {
	Key      settings.Key
	Report   string // telemetry field; empty means not reported
	Validate func(T) bool
	Effects  Effect

	// Format renders the telemetry value. Nil uses the plain value.
	Format func(T) string
	// Message builds the Announce text.
	Message     func(T) (title, body string)
	MessageTime time.Duration
}

// Apply validates v, does nothing when it equals the stored value, then
// persists it, reports it to the server and runs the effects. The in-memory
// value is updated even when persistence fails; the error is returned with
// changed set.
func Apply[T comparable](c *Controller, s Setting[T], v T) (bool, error) {
	if s.Validate != nil && !s.Validate(v) {
		return false, &errcode.E{C: errcode.InvalidValue, Op: "controller.apply", Msg: string(s.Key)}
	}
	if load[T](c.store, s.Key) == v {
		return false, nil
	}
	err := save(c.store, s.Key, v)
	c.log.Info().Str("key", string(s.Key)).Str("value", formatValue(v)).Msg("setting saved")

	if s.Report != "" {
		val := formatValue(v)
		if s.Format != nil {
			val = s.Format(v)
		}
		c.Report(s.Report, val)
	}
	if s.Effects&Relevel != 0 {
		c.levels = Distribute(c.store.GetInt(settings.BrightnessDay), c.store.GetInt(settings.BrightnessNight))
	}
	if s.Effects&Rebright != 0 {
		c.UpdateBrightness()
	}
	if s.Effects&Announce != 0 && s.Message != nil {
		title, body := s.Message(v)
		d := s.MessageTime
		if d == 0 {
			d = messageTime
		}
		c.show(title, body, d)
	}
	if s.Effects&Rerender != 0 {
		c.render()
	}
	return true, err
}

func load[T comparable](st *settings.Store, key settings.Key) T {
	var out T
	switch p := any(&out).(type) {
	case *int:
		*p = st.GetInt(key)
	case *bool:
		*p = st.GetBool(key)
	case *float64:
		*p = st.GetFloat(key)
	case *string:
		*p = st.GetString(key)
	}
	return out
}

func save[T comparable](st *settings.Store, key settings.Key, v T) error {
	switch x := any(v).(type) {
	case int:
		return st.SaveInt(key, x, true)
	case bool:
		return st.SaveBool(key, x, true)
	case float64:
		return st.SaveFloat(key, x, true)
	case string:
		return st.SaveString(key, x, true)
	}
	return &errcode.E{C: errcode.InvalidValue, Op: "controller.save", Msg: string(key)}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	}
	return ""
}

// Report sends a best-effort settings telemetry message to the server.
func (c *Controller) Report(key, value string) {
	if c.conn == nil {
		return
	}
	c.conn.Publish(c.conn.NewMessage(feed.TopicSend, types.Telemetry{Key: key, Value: value}, false))
}

func (c *Controller) show(title, body string, d time.Duration) {
	if c.notify != nil {
		c.notify.Show(title, body, d)
	}
}

func (c *Controller) render() {
	if c.onRender != nil {
		c.onRender()
	}
}

func between(lo, hi int) func(int) bool {
	return func(v int) bool { return mathx.Between(v, lo, hi) }
}

func onOff(on bool) string {
	if on {
		return "Enabled"
	}
	return "Disabled"
}

// -----------------------------------------------------------------------------
// Settings
// -----------------------------------------------------------------------------

var mapModeTitles = [...]string{"Off", "Alarms", "Weather", "Flag", "Random", "Lamp"}

func mapModeTitle(m render.MapMode) string {
	if m.Valid() {
		return mapModeTitles[m]
	}
	return m.String()
}

var mapModeSetting = Setting[int]{
	Key:      settings.MapMode,
	Report:   "map_mode",
	Validate: func(v int) bool { return render.MapMode(v).Valid() },
	Effects:  Rerender | Announce,
	Message: func(v int) (string, string) {
		return "Map mode:", mapModeTitle(render.MapMode(v))
	},
}

// MapMode returns the user-selected map mode.
func (c *Controller) MapMode() render.MapMode {
	return render.MapMode(c.store.GetInt(settings.MapMode))
}

// SetMapMode selects a map mode. Entering Lamp remembers the mode it
// replaced so the lamp toggle can restore it.
func (c *Controller) SetMapMode(m render.MapMode) (bool, error) {
	cur := c.MapMode()
	if m == render.ModeLamp && cur != render.ModeLamp && m.Valid() {
		c.prevMapMode = cur
	}
	return Apply(c, mapModeSetting, int(m))
}

func (c *Controller) NextMapMode() (bool, error) {
	return c.SetMapMode(render.MapMode((int(c.MapMode()) + 1) % render.SelectableModes))
}

// ToggleLamp switches to Lamp, or back to the mode Lamp replaced.
func (c *Controller) ToggleLamp() (bool, error) {
	if c.MapMode() == render.ModeLamp {
		return c.SetMapMode(c.prevMapMode)
	}
	return c.SetMapMode(render.ModeLamp)
}

func (c *Controller) PrevMapMode() render.MapMode { return c.prevMapMode }

func (c *Controller) DisplayMode() display.Mode {
	return display.Mode(c.store.GetInt(settings.DisplayMode))
}

// SetDisplayMode rejects modes the device cannot show.
func (c *Controller) SetDisplayMode(m display.Mode) (bool, error) {
	return Apply(c, Setting[int]{
		Key:      settings.DisplayMode,
		Report:   "display_mode",
		Validate: func(v int) bool { return display.Mode(v).Available(c.climate) },
		Effects:  Announce,
		Message: func(v int) (string, string) {
			return "Display mode:", display.Mode(v).String()
		},
		MessageTime: shortMessageTime,
	}, int(m))
}

func (c *Controller) NextDisplayMode() (bool, error) {
	return c.SetDisplayMode(display.Next(c.DisplayMode(), c.climate))
}

func (c *Controller) SetBrightness(v int) (bool, error) {
	return Apply(c, Setting[int]{
		Key: settings.Brightness, Report: "brightness",
		Validate: between(0, 100), Effects: Rebright,
	}, v)
}

func (c *Controller) SetDayBrightness(v int) (bool, error) {
	return Apply(c, Setting[int]{
		Key: settings.BrightnessDay, Report: "brightness_day",
		Validate: between(0, 100), Effects: Relevel | Rebright,
	}, v)
}

func (c *Controller) SetNightBrightness(v int) (bool, error) {
	return Apply(c, Setting[int]{
		Key: settings.BrightnessNight, Report: "brightness_night",
		Validate: between(0, 100), Effects: Relevel | Rebright,
	}, v)
}

func (c *Controller) SetAutoBrightness(m AutoBrightness) (bool, error) {
	return Apply(c, Setting[int]{
		Key:      settings.BrightnessAuto,
		Report:   "brightness_mode",
		Validate: func(v int) bool { return AutoBrightness(v).Valid() },
		Effects:  Rebright | Announce,
		Message: func(v int) (string, string) {
			return "Auto brightness:", AutoBrightness(v).String()
		},
	}, int(m))
}

func (c *Controller) SetAutoAlarm(m render.AutoSwitch) (bool, error) {
	return Apply(c, Setting[int]{
		Key: settings.AlarmsAutoSwitch, Report: "alarms_auto_switch",
		Validate: between(int(render.AutoSwitchOff), int(render.AutoSwitchHome)),
		Effects:  Rerender,
	}, int(m))
}

func (c *Controller) SetShowHomeAlarmTime(on bool) (bool, error) {
	return Apply(c, Setting[bool]{Key: settings.HomeAlertTime, Report: "home_alert_time"}, on)
}

var lampChannel = between(0, 255)

// SetLampRGB stores the lamp color. Channels are saved individually and
// reported together as "#rrggbb".
func (c *Controller) SetLampRGB(r, g, b int) (bool, error) {
	if !lampChannel(r) || !lampChannel(g) || !lampChannel(b) {
		return false, &errcode.E{C: errcode.InvalidValue, Op: "controller.lamp_rgb"}
	}
	var changed bool
	var firstErr error
	for _, ch := range []struct {
		key settings.Key
		v   int
	}{{settings.LampR, r}, {settings.LampG, g}, {settings.LampB, b}} {
		ok, err := Apply(c, Setting[int]{Key: ch.key}, ch.v)
		changed = changed || ok
		if firstErr == nil {
			firstErr = err
		}
	}
	if !changed {
		return false, nil
	}
	c.Report("ha_light_rgb", "#"+hex2(r)+hex2(g)+hex2(b))
	c.render()
	return true, firstErr
}

func hex2(v int) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[(v>>4)&0xF], digits[v&0xF]})
}

func (c *Controller) SetLampBrightness(v int) (bool, error) {
	return Apply(c, Setting[int]{
		Key: settings.LampBrightness, Report: "ha_light_brightness",
		Validate: between(0, 100), Effects: Rerender,
	}, v)
}

// nudgeLamp changes the lamp brightness in memory only; commitLamp persists it.
func (c *Controller) nudgeLamp(delta int) {
	cur := c.store.GetInt(settings.LampBrightness)
	next := max(0, min(100, cur+delta))
	if next != cur {
		_ = c.store.SaveInt(settings.LampBrightness, next, false)
		c.render()
	}
	c.show("Lamp brightness:", strconv.Itoa(next)+"%", messageTime)
}

func (c *Controller) commitLamp() {
	v := c.store.GetInt(settings.LampBrightness)
	if err := c.store.SaveInt(settings.LampBrightness, v, true); err != nil {
		return
	}
	c.Report("ha_light_brightness", strconv.Itoa(v))
	c.render()
}

func (c *Controller) SetHomeRegion(r int) (bool, error) {
	return Apply(c, Setting[int]{
		Key:      settings.HomeRegion,
		Report:   "home_district",
		Validate: topology.Valid,
		Effects:  Rerender | Announce,
		Format:   topology.Name,
		Message: func(v int) (string, string) {
			return "Home region:", topology.Name(v)
		},
	}, r)
}

// Alert pin modes.
const (
	PinLevel = 0
	PinPulse = 1
)

// SetAlertPinMode switches between level-follow and pulse. Both pins are
// released on a change so the two behaviors never overlap.
func (c *Controller) SetAlertPinMode(mode int) (bool, error) {
	changed, err := Apply(c, Setting[int]{
		Key: settings.AlertPinMode, Report: "alert_clear_pin_mode",
		Validate: between(PinLevel, PinPulse),
	}, mode)
	if changed {
		c.resetPins()
	}
	return changed, err
}

func (c *Controller) SetAlertPinTime(sec float64) (bool, error) {
	return Apply(c, Setting[float64]{
		Key: settings.AlertPinTimeSec, Report: "alert_clear_pin_time",
		Validate: func(v float64) bool { return v > 0 && v <= 60 },
	}, sec)
}

// -----------------------------------------------------------------------------
// Runtime toggles
// -----------------------------------------------------------------------------

// SetNightMode forces night brightness until switched off. It is not
// persisted.
func (c *Controller) SetNightMode(on bool) bool {
	if c.night == on {
		return false
	}
	c.night = on
	c.log.Info().Bool("night", on).Msg("night mode")
	c.show("Night mode:", onOff(on), messageTime)
	c.UpdateBrightness()
	c.render()
	c.Report("nightMode", strconv.FormatBool(on))
	return true
}

func (c *Controller) NightMode() bool  { return c.night }
func (c *Controller) MapOff() bool     { return c.mapOff }
func (c *Controller) DisplayOff() bool { return c.displayOff }

func (c *Controller) ToggleMap() {
	c.mapOff = !c.mapOff
	c.show("Map:", onOff(!c.mapOff), messageTime)
	c.render()
}

func (c *Controller) ToggleDisplay() {
	c.displayOff = !c.displayOff
	c.show("Display:", onOff(!c.displayOff), messageTime)
}

// ToggleBoth turns map and display on together when they disagree and
// flips both otherwise.
func (c *Controller) ToggleBoth() {
	if c.mapOff != c.displayOff {
		c.mapOff, c.displayOff = false, false
	} else {
		c.mapOff, c.displayOff = !c.mapOff, !c.displayOff
	}
	c.show("Display and map:", onOff(!c.mapOff), messageTime)
	c.render()
}

// -----------------------------------------------------------------------------
// Mode resolution
// -----------------------------------------------------------------------------

// Flags gathers the mode-resolution inputs for this instant.
func (c *Controller) Flags(reconnecting bool) render.Flags {
	home := c.store.GetInt(settings.HomeRegion)
	return render.Flags{
		Selected:      c.MapMode(),
		MapOff:        c.mapOff,
		Silence:       c.silence,
		Anthem:        c.anthem,
		AutoSwitch:    render.AutoSwitch(c.store.GetInt(settings.AlarmsAutoSwitch)),
		HomeAlarm:     c.reg.Alarm(home).Active,
		NeighborAlarm: c.reg.AnyActive(topology.Neighbors(home)),
		Reconnecting:  reconnecting,
	}
}

// CurrentMapMode resolves the mode shown now.
func (c *Controller) CurrentMapMode(reconnecting bool) render.MapMode {
	return render.ResolveMode(c.Flags(reconnecting))
}

// -----------------------------------------------------------------------------
// Brightness
// -----------------------------------------------------------------------------

func (c *Controller) inputs() Inputs {
	in := Inputs{
		Night:      c.night,
		Mode:       AutoBrightness(c.store.GetInt(settings.BrightnessAuto)),
		Hour:       c.clock.Now().In(c.loc).Hour(),
		DayStart:   c.store.GetInt(settings.DayStart),
		NightStart: c.store.GetInt(settings.NightStart),
	}
	if c.light != nil && c.light.Available() {
		in.Sensor = true
		in.Lux = c.light.Lux()
	}
	return in
}

// UpdateBrightness re-derives the current brightness and stores it when it
// moved.
func (c *Controller) UpdateBrightness() int {
	v := Resolve(c.inputs(),
		c.store.GetInt(settings.Brightness),
		c.store.GetInt(settings.BrightnessDay),
		c.store.GetInt(settings.BrightnessNight),
		c.levels)
	if v != c.store.GetInt(settings.CurrentBrightness) {
		_ = c.store.SaveInt(settings.CurrentBrightness, v, true)
		c.log.Debug().Int("brightness", v).Msg("current brightness")
	}
	return v
}

// Brightness returns the last resolved brightness.
func (c *Controller) Brightness() int { return c.store.GetInt(settings.CurrentBrightness) }

func (c *Controller) Levels() []int { return c.levels }

// DimDisplay reports whether the display should be dimmed: night by the
// same resolution rules, with "dim at night" on and the display not off.
func (c *Controller) DimDisplay() bool {
	if !c.store.GetBool(settings.DimDisplayNight) || c.displayOff {
		return false
	}
	return Resolve(c.inputs(), 0, 0, 1, nil) == 1
}

// SetLocation changes the zone used for day/night windows and the minute of
// silence.
func (c *Controller) SetLocation(loc *time.Location) {
	if loc != nil {
		c.loc = loc
	}
}
