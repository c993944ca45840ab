// Package sensors adapts the I2C climate and light sensors to the values the
// control loop consumes. Sensors are probed once; a sensor that does not
// answer is reported unavailable for the lifetime of the process.
package sensors

import (
	"errors"

	"github.com/rs/zerolog"
	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/bh1750"
	"tinygo.org/x/drivers/bmp280"
	"tinygo.org/x/drivers/shtc3"

	"alertmap-go/drivers/aht20"
)

const mmHgPerPa = 0.00750062

// Reading is one set of climate values. Has* reports availability.
type Reading struct {
	Temp, Hum, Press          float64
	HasTemp, HasHum, HasPress bool
}

func (r Reading) Any() bool { return r.HasTemp || r.HasHum || r.HasPress }

// Corrections are user offsets added to raw readings.
type Corrections struct {
	Temp, Hum, Press float64
}

// Apply returns r with offsets added to the available values.
func (c Corrections) Apply(r Reading) Reading {
	if r.HasTemp {
		r.Temp += c.Temp
	}
	if r.HasHum {
		r.Hum += c.Hum
	}
	if r.HasPress {
		r.Press += c.Press
	}
	return r
}

// -----------------------------------------------------------------------------
// Climate
// -----------------------------------------------------------------------------

// Climate combines a temperature/humidity chip (SHTC3, or an AHT20 when no
// SHTC3 answers) and a BMP280 (pressure, temperature).
type Climate struct {
	log zerolog.Logger

	th    *shtc3.Device
	aht   *aht20.Device
	press *bmp280.Device
	last  Reading
}

// OpenClimate probes both sensors on bus; nil bus yields a Climate with
// nothing available.
func OpenClimate(bus drivers.I2C, log zerolog.Logger) *Climate {
	c := &Climate{log: log.With().Str("svc", "climate").Logger()}
	if bus == nil {
		return c
	}
	if bus.Tx(shtc3.SHTC3_ADDRESS, []byte(shtc3.SHTC3_CMD_WAKEUP), nil) == nil {
		d := shtc3.New(bus)
		c.th = &d
		c.log.Info().Msg("shtc3 found")
	} else if a := aht20.New(bus); a.Probe() {
		if err := a.Configure(); err != nil {
			c.log.Warn().Err(err).Msg("aht20 init failed")
		}
		_ = a.Trigger()
		c.aht = &a
		c.log.Info().Msg("aht20 found")
	}
	p := bmp280.New(bus)
	if p.Connected() {
		p.Configure(bmp280.STANDBY_125MS, bmp280.FILTER_4X, bmp280.SAMPLING_2X, bmp280.SAMPLING_16X, bmp280.MODE_NORMAL)
		c.press = &p
		c.log.Info().Msg("bmp280 found")
	}
	return c
}

func (c *Climate) TemperatureAvailable() bool { return c.HumidityAvailable() || c.press != nil }
func (c *Climate) HumidityAvailable() bool    { return c.th != nil || c.aht != nil }
func (c *Climate) PressureAvailable() bool    { return c.press != nil }

// Update reads every available sensor. Failed reads keep the previous value.
// The AHT20 result is the conversion triggered by the previous Update.
func (c *Climate) Update() {
	if c.aht != nil {
		switch err := c.aht.Collect(); {
		case err == nil:
			c.last.Temp, c.last.HasTemp = c.aht.Celsius(), true
			c.last.Hum, c.last.HasHum = c.aht.RelHumidity(), true
		case !errors.Is(err, aht20.ErrNotReady):
			c.log.Warn().Err(err).Msg("aht20 read failed")
		}
		_ = c.aht.Trigger()
	}
	if c.th != nil {
		_ = c.th.WakeUp()
		tmc, rh, err := c.th.ReadTemperatureHumidity()
		_ = c.th.Sleep()
		if err != nil {
			c.log.Warn().Err(err).Msg("shtc3 read failed")
		} else {
			c.last.Temp, c.last.HasTemp = float64(tmc)/1000, true
			c.last.Hum, c.last.HasHum = float64(rh)/100, true
		}
	}
	if c.press != nil {
		mpa, err := c.press.ReadPressure()
		if err != nil {
			c.log.Warn().Err(err).Msg("bmp280 read failed")
		} else {
			c.last.Press, c.last.HasPress = float64(mpa)/1000*mmHgPerPa, true
		}
		if !c.HumidityAvailable() {
			if tmc, err := c.press.ReadTemperature(); err == nil {
				c.last.Temp, c.last.HasTemp = float64(tmc)/1000, true
			}
		}
	}
}

// Reading returns the last values with corrections applied.
func (c *Climate) Reading(corr Corrections) Reading {
	return corr.Apply(c.last)
}

// Sensors lists the probed chips, as reported in the feed handshake.
func (c *Climate) Sensors() map[string]bool {
	return map[string]bool{"shtc3": c.th != nil, "aht20": c.aht != nil, "bmp280": c.press != nil}
}

// -----------------------------------------------------------------------------
// Light
// -----------------------------------------------------------------------------

type Light struct {
	log zerolog.Logger
	dev *bh1750.Device
	lux float64
}

func OpenLight(bus drivers.I2C, log zerolog.Logger) *Light {
	l := &Light{log: log.With().Str("svc", "light").Logger()}
	if bus == nil {
		return l
	}
	if bus.Tx(bh1750.Address, []byte{bh1750.POWER_ON}, nil) != nil {
		return l
	}
	d := bh1750.New(bus)
	d.Configure()
	l.dev = &d
	l.log.Info().Msg("bh1750 found")
	return l
}

func (l *Light) Available() bool { return l.dev != nil }

// Update samples the sensor and returns lux scaled by factor.
func (l *Light) Update(factor float64) float64 {
	if l.dev == nil {
		return 0
	}
	if factor <= 0 {
		factor = 1
	}
	l.lux = float64(l.dev.Illuminance()) / 1000 * factor
	return l.lux
}

func (l *Light) Lux() float64 { return l.lux }
