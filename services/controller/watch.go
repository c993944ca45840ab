package controller

import (
	"time"

	"alertmap-go/services/scheduler"
	"alertmap-go/services/settings"
	"alertmap-go/services/topology"
)

// FeedApplied runs after every feed update has been merged into the region
// store. The first call never pulses the pins.
func (c *Controller) FeedApplied() {
	c.CheckHome()
	c.PinCycle()
	c.fetched = true
}

// Tick is the periodic state pass: minute of silence and home watch.
func (c *Controller) Tick() {
	c.CheckSilence()
	c.CheckHome()
}

// HomeAlarm reports the home-region alarm as last observed.
func (c *Controller) HomeAlarm() bool { return c.alarmNow }

// HomeSince is when the current home alarm started.
func (c *Controller) HomeSince() time.Time {
	return c.reg.Alarm(c.store.GetInt(settings.HomeRegion)).Since
}

// CheckHome notices home-region alarm flips and fresh explosions.
func (c *Controller) CheckHome() {
	home := c.store.GetInt(settings.HomeRegion)
	name := topology.Name(home)

	if active := c.reg.Alarm(home).Active; active != c.alarmNow {
		c.alarmNow = active
		c.log.Info().Str("region", name).Bool("alarm", active).Msg("home alarm changed")
		c.PinCycle()
		if active {
			c.show(name, "Alarm!", alarmMessageTime)
		} else {
			c.show(name, "All clear", alarmMessageTime)
		}
	}

	at := c.reg.Events(home).Explosion
	if at.Equal(c.homeExplosion) {
		return
	}
	c.homeExplosion = at
	window := time.Duration(c.store.GetInt(settings.ExplosionMin)) * time.Minute
	if !at.IsZero() && c.clock.Now().Sub(at) < window && c.store.GetInt(settings.NotifyMode) > 0 {
		c.show(name, "Explosions!", alarmMessageTime)
	}
}

// -----------------------------------------------------------------------------
// Alert and clear pins
// -----------------------------------------------------------------------------

// PinCycle drives the alert/clear outputs from the home alarm. In level mode
// the alert pin mirrors the alarm. In pulse mode the alert pin pulses on
// alarm start and the clear pin on alarm end; a pending release is
// rescheduled by a newer edge.
func (c *Controller) PinCycle() {
	switch c.store.GetInt(settings.AlertPinMode) {
	case PinLevel:
		if c.alert != nil && c.alertHigh != c.alarmNow {
			c.setAlert(c.alarmNow)
		}
	case PinPulse:
		if c.alert != nil && c.alarmNow && !c.pinAlarm {
			c.pinAlarm = true
			if !c.fetched {
				c.log.Debug().Msg("no alert pulse on first fetch")
				return
			}
			c.setAlert(true)
			c.alertRelease = c.release(c.alertRelease, func() { c.setAlert(false) })
		}
		if c.clear != nil && !c.alarmNow && c.pinAlarm {
			c.pinAlarm = false
			if !c.fetched {
				c.log.Debug().Msg("no clear pulse on first fetch")
				return
			}
			c.setClear(true)
			c.clearRelease = c.release(c.clearRelease, func() { c.setClear(false) })
		}
	}
}

func (c *Controller) release(prev scheduler.Handle, fn func()) scheduler.Handle {
	c.sched.Cancel(prev)
	d := time.Duration(c.store.GetFloat(settings.AlertPinTimeSec) * float64(time.Second))
	c.log.Debug().Dur("after", d).Msg("pin release scheduled")
	return c.sched.After(d, fn)
}

func (c *Controller) setAlert(high bool) {
	c.alertHigh = high
	c.alert.Set(high)
	c.log.Debug().Bool("high", high).Msg("alert pin")
}

func (c *Controller) setClear(high bool) {
	c.clearHigh = high
	c.clear.Set(high)
	c.log.Debug().Bool("high", high).Msg("clear pin")
}

// resetPins cancels pending pulses and drives both pins low. The pulse edge
// tracker adopts the current alarm so a mode switch does not pulse.
func (c *Controller) resetPins() {
	c.sched.Cancel(c.alertRelease)
	c.sched.Cancel(c.clearRelease)
	if c.alert != nil {
		c.setAlert(false)
	}
	if c.clear != nil {
		c.setClear(false)
	}
	c.pinAlarm = c.alarmNow
	c.PinCycle()
}

func (c *Controller) AlertPinHigh() bool { return c.alertHigh }
func (c *Controller) ClearPinHigh() bool { return c.clearHigh }

// -----------------------------------------------------------------------------
// Minute of silence and anthem
// -----------------------------------------------------------------------------

const silenceHour = 9

// CheckSilence turns the minute of silence on at 09:00 local time when
// enabled.
func (c *Controller) CheckSilence() {
	now := c.clock.Now().In(c.loc)
	on := c.store.GetBool(settings.MinuteOfSilence) && now.Hour() == silenceHour && now.Minute() == 0
	if on == c.silence {
		return
	}
	c.silence = on
	c.log.Info().Bool("silence", on).Msg("minute of silence")
	c.render()
}

func (c *Controller) Silence() bool { return c.silence }

// SetAnthem records whether the audio player is playing the anthem.
func (c *Controller) SetAnthem(on bool) {
	if on == c.anthem {
		return
	}
	c.anthem = on
	c.render()
}

func (c *Controller) Anthem() bool { return c.anthem }
