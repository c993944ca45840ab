// Package app owns every component of the appliance and drives them from a
// single cooperative loop. Only the feed link and button interrupts run on
// other goroutines; they talk to the loop over the bus.
package app

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"tinygo.org/x/drivers"

	"alertmap-go/bus"
	"alertmap-go/services/buttons"
	"alertmap-go/services/controller"
	"alertmap-go/services/display"
	"alertmap-go/services/feed"
	"alertmap-go/services/firmware"
	"alertmap-go/services/health"
	"alertmap-go/services/regions"
	"alertmap-go/services/render"
	"alertmap-go/services/scheduler"
	"alertmap-go/services/sensors"
	"alertmap-go/services/settings"
	"alertmap-go/services/topology"
	"alertmap-go/services/watchdog"
	"alertmap-go/types"
	"alertmap-go/x/timex"
)

// Intervals of the periodic tasks.
const (
	MapInterval        = time.Second
	DisplayInterval    = 100 * time.Millisecond
	BrightnessInterval = time.Second
	HealthInterval     = 3 * time.Second
	PinInterval        = time.Second
	RebootInterval     = 500 * time.Millisecond
	LightInterval      = 2 * time.Second
	ClimateInterval    = 5 * time.Second
	StatesInterval     = 500 * time.Millisecond
	UptimeInterval     = 5 * time.Second

	loopPeriod = 10 * time.Millisecond
)

// TopicPlayer carries types.PlayerState from the audio player.
var TopicPlayer = bus.T("player", "state")

// Deps are the platform pieces the app runs on. Nil fields are absent
// capabilities.
type Deps struct {
	Bus      *bus.Bus
	Store    *settings.Store
	Profile  types.BoardProfile
	Clock    timex.Clock
	Log      zerolog.Logger
	Firmware string // running version, e.g. "4.2"
	ChipID   string
	IP       string

	Output   *render.Output
	Display  display.Display
	I2C      drivers.I2C
	AlertPin controller.Pin
	ClearPin controller.Pin
	Buttons  []buttons.Pin
	Watchdog watchdog.Kicker
	Restart  func()
}

type App struct {
	log     zerolog.Logger
	bus     *bus.Bus
	conn    *bus.Connection
	clock   timex.Clock
	store   *settings.Store
	profile types.BoardProfile

	regions *regions.Store
	sched   *scheduler.Scheduler
	engine  *render.Engine
	out     *render.Output
	disp    *display.Machine
	screen  display.Display
	ctl     *controller.Controller
	health  *health.Monitor
	reboot  *watchdog.Rebooter
	fw      *firmware.Notice
	climate *sensors.Climate
	light   *sensors.Light
	kicker  watchdog.Kicker

	buttonPins []buttons.Pin

	feedSub     *bus.Subscription
	stateSub    *bus.Subscription
	settingsSub *bus.Subscription
	buttonSub   *bus.Subscription
	playerSub   *bus.Subscription

	chipID  string
	version string
	ip      string
	started time.Time
	uptime  time.Duration
	mode    render.MapMode
	lastFrm render.Frame
}

func New(d Deps) *App {
	if d.Clock == nil {
		d.Clock = timex.System{}
	}
	if d.Output == nil {
		d.Output = &render.Output{}
	}
	if d.Restart == nil {
		d.Restart = func() {}
	}
	a := &App{
		log:        d.Log.With().Str("svc", "app").Logger(),
		bus:        d.Bus,
		conn:       d.Bus.NewConnection("app"),
		clock:      d.Clock,
		store:      d.Store,
		profile:    d.Profile,
		out:        d.Output,
		screen:     d.Display,
		kicker:     d.Watchdog,
		buttonPins: d.Buttons,
		chipID:     d.ChipID,
		version:    d.Firmware,
		ip:         d.IP,
		started:    d.Clock.Now(),
	}

	a.regions = regions.New(a.clock)
	a.sched = scheduler.New(a.clock)
	a.disp = display.NewMachine(a.clock, d.Log)
	a.engine = render.NewEngine(render.Layout{
		Main:       d.Profile.MainPixels,
		Background: d.Profile.BgPixels,
		Service:    d.Profile.ServicePixels,
	}, render.PaletteFor(d.Profile), a.mapper(), a.clock.Now().UnixNano())

	cur, _ := firmware.Parse(d.Firmware)
	a.fw = firmware.NewNotice(cur)
	a.fw.SetChannel(firmware.Channel(a.store.GetInt(settings.FwUpdateChannel)))

	a.reboot = watchdog.NewRebooter(d.Restart, a.sched, d.Log)
	a.reboot.Notify = func(reason string, delay time.Duration) {
		a.disp.Show("Rebooting..", reason, delay)
	}
	a.health = health.New(a.conn, a.reboot, d.Log, a.clock.Now())
	a.applyTimeouts()

	if d.I2C != nil {
		if d.Profile.ClimateSensor {
			a.climate = sensors.OpenClimate(d.I2C, d.Log)
		}
		if d.Profile.LightSensor {
			a.light = sensors.OpenLight(d.I2C, d.Log)
		}
	}

	deps := controller.Deps{
		Store:     a.store,
		Regions:   a.regions,
		Scheduler: a.sched,
		Clock:     a.clock,
		Conn:      a.conn,
		Notifier:  a.disp,
		Rebooter:  a.reboot,
		Firmware:  a.fw,
		Location:  zoneFor(a.store.GetInt(settings.TimeZone)),
		Climate:   a.climateAny(),
		Log:       d.Log,
		OnRender:  a.renderMap,
	}
	if d.Profile.HasAlertPin() {
		deps.AlertPin = d.AlertPin
	}
	if d.Profile.HasClearPin() {
		deps.ClearPin = d.ClearPin
	}
	if a.light != nil {
		deps.Light = a.light
	}
	a.ctl = controller.New(deps)

	// Link state gets its own queue so a burst of feed traffic cannot
	// evict "link up".
	a.stateSub = a.conn.Subscribe(feed.TopicState)
	a.feedSub = a.conn.Subscribe(bus.T("feed", bus.MultiWild))
	a.settingsSub = a.conn.Subscribe(bus.T("settings", bus.SingleWild))
	a.buttonSub = a.conn.Subscribe(buttons.TopicAll)
	a.playerSub = a.conn.Subscribe(TopicPlayer)

	a.registerTasks()
	return a
}

func (a *App) registerTasks() {
	a.sched.Every(MapInterval, a.renderMap)
	a.sched.Every(DisplayInterval, a.updateDisplay)
	a.sched.Every(BrightnessInterval, func() { a.ctl.UpdateBrightness() })
	a.sched.Every(HealthInterval, a.checkHealth)
	a.sched.Every(PinInterval, a.ctl.PinCycle)
	a.sched.Every(RebootInterval, a.checkReboot)
	if a.light != nil && a.light.Available() {
		a.sched.Every(LightInterval, func() { a.light.Update(a.store.GetFloat(settings.LightSensorFactor)) })
	}
	if a.climateAny() {
		a.sched.Every(ClimateInterval, a.climate.Update)
	}
	a.sched.Every(StatesInterval, a.ctl.Tick)
	a.sched.Every(UptimeInterval, func() { a.uptime = a.clock.Now().Sub(a.started) })
}

func (a *App) climateAny() bool {
	return a.climate != nil && (a.climate.TemperatureAvailable() || a.climate.HumidityAvailable() || a.climate.PressureAvailable())
}

// Controller exposes the mutation entry points, e.g. for a local API.
func (a *App) Controller() *controller.Controller { return a.ctl }

func (a *App) Regions() *regions.Store { return a.regions }

func (a *App) Mode() render.MapMode { return a.mode }

// Frame is the last rendered frame.
func (a *App) Frame() render.Frame { return a.lastFrm }

// -----------------------------------------------------------------------------
// Loop
// -----------------------------------------------------------------------------

// Run starts the feed worker and the button worker, then loops until ctx
// is done.
func (a *App) Run(ctx context.Context) error {
	go feed.Start(ctx, a.bus.NewConnection("feed"), a.log)
	a.startButtons(ctx)
	a.PublishFeedConfig()
	a.ctl.UpdateBrightness()
	a.renderMap()

	tick := time.NewTicker(loopPeriod)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			a.RunOnce()
		}
	}
}

// RunOnce is one pass of the loop: drain inbound messages, run due tasks,
// keep blink animations smooth and feed the watchdog.
func (a *App) RunOnce() {
	a.drain()
	a.sched.Tick()
	if a.animating() {
		a.renderMap()
	}
	if a.kicker != nil {
		a.kicker.Kick()
	}
}

func (a *App) startButtons(ctx context.Context) {
	if len(a.buttonPins) == 0 {
		return
	}
	w := buttons.NewWorker(a.bus.NewConnection("buttons"), a.log)
	for i, p := range a.buttonPins {
		if _, err := w.Register(i, p, true); err != nil {
			a.log.Warn().Err(err).Int("button", i).Msg("button irq failed")
		}
	}
	go w.Run(ctx)
}

// animating reports whether the current mode changes with wall-clock time
// between map ticks.
func (a *App) animating() bool {
	switch a.mode {
	case render.ModeReconnecting:
		return true
	case render.ModeAlarms:
		return render.NotifyMode(a.store.GetInt(settings.NotifyMode)) == render.NotifyBlink
	}
	return false
}

func (a *App) drain() {
	for {
		m, ok := a.stateSub.TryRecv()
		if !ok {
			break
		}
		a.health.Handle(m, a.clock.Now())
	}
	for {
		m, ok := a.feedSub.TryRecv()
		if !ok {
			break
		}
		a.handleFeed(m)
	}
	for {
		m, ok := a.settingsSub.TryRecv()
		if !ok {
			break
		}
		if ch, ok := m.Payload.(types.SettingChange); ok {
			a.handleSetting(ch)
		}
	}
	for {
		m, ok := a.buttonSub.TryRecv()
		if !ok {
			break
		}
		if ev, ok := m.Payload.(types.ButtonEvent); ok {
			a.ctl.HandleButton(ev)
		}
	}
	for {
		m, ok := a.playerSub.TryRecv()
		if !ok {
			break
		}
		if st, ok := m.Payload.(types.PlayerState); ok {
			a.ctl.SetAnthem(st.Anthem)
		}
	}
}

func (a *App) handleFeed(m *bus.Message) {
	now := a.clock.Now()
	switch p := m.Payload.(type) {
	case types.Heartbeat:
		a.health.Handle(m, now)
		return
	case types.FeedState:
		return // handled from stateSub
	case []types.RegionAlert:
		if changed := a.regions.ApplyAlerts(p); len(changed) > 0 {
			a.log.Info().Ints("regions", changed).Int("active", a.regions.ActiveCount()).Msg("alerts changed")
		}
	case []types.RegionValue:
		a.regions.ApplyWeather(p)
	case types.Events:
		a.regions.ApplyEvents(p.Kind, p.At)
	case types.Bins:
		a.fw.Apply(p)
		return
	default:
		return
	}
	a.ctl.FeedApplied()
	a.renderMap()
}

func (a *App) handleSetting(ch types.SettingChange) {
	switch settings.Key(ch.Key) {
	case settings.Legacy, settings.KyivMode:
		a.engine.SetMapper(a.mapper())
		a.renderMap()
	case settings.WSAlertTimeMs, settings.WSRebootTimeMs:
		a.applyTimeouts()
	case settings.FwUpdateChannel:
		a.fw.SetChannel(firmware.Channel(a.store.GetInt(settings.FwUpdateChannel)))
	case settings.ServerHost, settings.ServerPort, settings.Identifier:
		a.PublishFeedConfig()
	case settings.TimeZone:
		a.ctl.SetLocation(zoneFor(a.store.GetInt(settings.TimeZone)))
	}
}

func (a *App) mapper() topology.Mapper {
	return topology.Mapper{
		Offset:  topology.OffsetForLegacy(a.store.GetInt(settings.Legacy)),
		Variant: topology.VariantFor(a.store.GetInt(settings.KyivMode)),
	}
}

func (a *App) applyTimeouts() {
	a.health.SetTimeouts(
		time.Duration(a.store.GetInt(settings.WSAlertTimeMs))*time.Millisecond,
		time.Duration(a.store.GetInt(settings.WSRebootTimeMs))*time.Millisecond,
	)
}

func zoneFor(hours int) *time.Location {
	name := "UTC"
	if hours >= 0 {
		name += "+"
	}
	return time.FixedZone(name+strconv.Itoa(hours), hours*3600)
}

// -----------------------------------------------------------------------------
// Periodic work
// -----------------------------------------------------------------------------

func (a *App) renderMap() {
	now := a.clock.Now()
	reconnecting := a.health.State() != health.Connected
	a.mode = a.ctl.CurrentMapMode(reconnecting)
	a.lastFrm = a.engine.Render(render.Input{
		Now:     now,
		Mode:    a.mode,
		View:    a.engine.Mapper().View(a.regions),
		Params:  render.ParamsFrom(a.store, a.ctl.Brightness()),
		Service: a.serviceStatus(),
	})
	a.out.Flush(a.lastFrm)
}

func (a *App) serviceStatus() render.ServiceStatus {
	return render.ServiceStatus{
		Power: true,
		WiFi:  a.ip != "",
		Data:  a.health.IsOpen(),
	}
}

func (a *App) checkHealth() {
	prev := a.health.State()
	st := a.health.Check(a.clock.Now())
	if st != prev {
		a.log.Info().Str("from", prev.String()).Str("to", st.String()).Msg("feed health")
		a.renderMap()
	}
}

// checkReboot keeps the reboot notice on screen until restart runs.
func (a *App) checkReboot() {
	if reason, ok := a.reboot.Pending(); ok {
		a.disp.Show("Rebooting..", reason, 2*RebootInterval)
	}
}

func (a *App) updateDisplay() {
	a.disp.Update(a.screen, a.displayContext(), a.ctl.DimDisplay())
}

func (a *App) displayContext() display.Context {
	now := a.clock.Now()
	home := a.store.GetInt(settings.HomeRegion)
	w := a.regions.Weather(home)

	c := display.Context{
		Now:           now.In(zoneFor(a.store.GetInt(settings.TimeZone))),
		Anthem:        a.ctl.Anthem(),
		Silence:       a.ctl.Silence(),
		HomeAlarm:     a.ctl.HomeAlarm(),
		ShowAlarmTime: a.store.GetBool(settings.HomeAlertTime),
		HomeSince:     a.ctl.HomeSince(),
		HomeName:      topology.Name(home),
		Off:           a.ctl.DisplayOff(),
		Firmware: display.FirmwareNotice{
			Enabled:   a.store.GetBool(settings.NewFwNotice),
			Available: a.fw.UpdateAvailable(),
			Version:   a.fw.Latest().String(),
			IP:        a.ip,
			Button:    len(a.buttonPins) > 0,
		},
		Mode:          a.ctl.DisplayMode(),
		SlotPeriod:    a.store.GetInt(settings.DisplayModeTime),
		HomeTemp:      w.Temp,
		HomeTempKnown: w.Known,
		Tech: display.Tech{
			IP:            a.ip,
			Uptime:        a.uptime,
			FeedConnected: a.health.IsOpen(),
			Firmware:      a.version,
		},
		Toggle: display.Toggle{
			Weather: a.store.GetBool(settings.ToggleWeather),
			Temp:    a.store.GetBool(settings.ToggleTemp),
			Hum:     a.store.GetBool(settings.ToggleHum),
			Press:   a.store.GetBool(settings.TogglePress),
		},
	}
	if a.climate != nil {
		r := a.climate.Reading(sensors.Corrections{
			Temp:  a.store.GetFloat(settings.TempCorrection),
			Hum:   a.store.GetFloat(settings.HumCorrection),
			Press: a.store.GetFloat(settings.PressCorrection),
		})
		c.Climate = display.Climate{
			Temp: r.Temp, Hum: r.Hum, Press: r.Press,
			HasTemp: r.HasTemp, HasHum: r.HasHum, HasPress: r.HasPress,
		}
	}
	return c
}

// -----------------------------------------------------------------------------
// Feed configuration
// -----------------------------------------------------------------------------

// FeedConfig builds the feed link configuration from settings and the board.
func (a *App) FeedConfig() feed.Config {
	info := map[string]any{
		"legacy":  a.store.GetInt(settings.Legacy),
		"display": a.screen != nil && a.screen.Available(),
		"bh1750":  a.light != nil && a.light.Available(),
		"board":   a.profile.ID,
	}
	if a.climate != nil {
		for name, ok := range a.climate.Sensors() {
			info[name] = ok
		}
	}
	return feed.Config{
		Host:       a.store.GetString(settings.ServerHost),
		Port:       a.store.GetInt(settings.ServerPort),
		ChipID:     a.chipID,
		Firmware:   a.version,
		Identifier: a.store.GetString(settings.Identifier),
		UserInfo:   info,
	}
}

// PublishFeedConfig (re)configures the feed worker.
func (a *App) PublishFeedConfig() {
	a.conn.Publish(a.conn.NewMessage(feed.TopicConfig, a.FeedConfig(), true))
}
