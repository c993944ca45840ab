package controller

import (
	"alertmap-go/services/firmware"
	"alertmap-go/services/render"
	"alertmap-go/services/settings"
	"alertmap-go/types"
)

// Action is the configured behavior of a button press.
type Action int

const (
	ActionNone Action = iota
	ActionNextMapMode
	ActionNextDisplayMode
	ActionToggleMap
	ActionToggleDisplay
	ActionToggleBoth
	ActionNightMode
	ActionLampOrReboot // click toggles the lamp, long click reboots
	ActionLampUp       // hold raises lamp brightness
	ActionLampDown     // hold lowers lamp brightness
)

var buttonKeys = [...][2]settings.Key{
	{settings.ButtonMode, settings.ButtonModeLong},
	{settings.Button2Mode, settings.Button2ModeLong},
}

func (c *Controller) actions(button int) (click, long Action, ok bool) {
	if button < 0 || button >= len(buttonKeys) {
		return ActionNone, ActionNone, false
	}
	k := buttonKeys[button]
	return Action(c.store.GetInt(k[0])), Action(c.store.GetInt(k[1])), true
}

func (c *Controller) anyButtonActive() bool {
	for _, k := range buttonKeys {
		if c.store.GetInt(k[0]) != 0 || c.store.GetInt(k[1]) != 0 {
			return true
		}
	}
	return false
}

// updateOnLongPress reports whether a long press should start a firmware
// update instead of its configured action.
func (c *Controller) updateOnLongPress() bool {
	return c.fw != nil &&
		c.store.GetBool(settings.NewFwNotice) &&
		c.fw.UpdateAvailable() &&
		c.anyButtonActive() &&
		!c.displayOff
}

// HandleButton runs the action configured for a logical button event.
func (c *Controller) HandleButton(ev types.ButtonEvent) {
	click, long, ok := c.actions(ev.Button)
	if !ok {
		c.log.Warn().Int("button", ev.Button).Msg("unknown button")
		return
	}
	c.log.Debug().Int("button", ev.Button).Str("kind", string(ev.Kind)).Msg("button")

	switch ev.Kind {
	case types.ButtonClick:
		c.run(click, false)
	case types.ButtonLongClick:
		if c.updateOnLongPress() {
			c.requestUpdate()
			return
		}
		c.run(long, true)
	case types.ButtonDuringLong:
		if c.updateOnLongPress() {
			return
		}
		switch long {
		case ActionLampUp, ActionLampDown:
			if c.CurrentMapMode(false) != render.ModeLamp {
				c.show("Lamp mode only", "", messageTime)
				return
			}
			delta := 1
			if long == ActionLampDown {
				delta = -1
			}
			c.nudgeLamp(delta)
		}
	case types.ButtonLongClickDone:
		if (long == ActionLampUp || long == ActionLampDown) && c.CurrentMapMode(false) == render.ModeLamp {
			c.commitLamp()
		}
	}
}

func (c *Controller) run(a Action, long bool) {
	switch a {
	case ActionNextMapMode:
		if _, err := c.NextMapMode(); err != nil {
			c.log.Warn().Err(err).Msg("map mode not saved")
		}
	case ActionNextDisplayMode:
		if _, err := c.NextDisplayMode(); err != nil {
			c.log.Warn().Err(err).Msg("display mode not saved")
		}
	case ActionToggleMap:
		c.ToggleMap()
	case ActionToggleDisplay:
		c.ToggleDisplay()
	case ActionToggleBoth:
		c.ToggleBoth()
	case ActionNightMode:
		c.SetNightMode(!c.night)
	case ActionLampOrReboot:
		if !long {
			if _, err := c.ToggleLamp(); err != nil {
				c.log.Warn().Err(err).Msg("lamp mode not saved")
			}
			return
		}
		c.RequestReboot("button")
	}
}

// RequestReboot schedules a restart after a short notice.
func (c *Controller) RequestReboot(reason string) {
	c.show("Rebooting..", "", rebootDelay)
	if c.reboot != nil {
		c.reboot.Reboot(reason, rebootDelay)
	}
}

func (c *Controller) requestUpdate() {
	if c.conn == nil {
		return
	}
	v := c.fw.Latest()
	beta := firmware.Channel(c.store.GetInt(settings.FwUpdateChannel)) == firmware.Beta
	c.log.Info().Str("version", v.String()).Bool("beta", beta).Msg("firmware update requested")
	c.show("Updating to", v.String(), messageTime)
	c.conn.Publish(c.conn.NewMessage(TopicFirmwareUpdate, types.FirmwareUpdate{
		File: v.String() + ".bin",
		Beta: beta,
	}, false))
}
