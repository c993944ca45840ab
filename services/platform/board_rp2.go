//go:build rp2040 || rp2350

package platform

import (
	"image/color"
	"machine"

	"github.com/rs/zerolog"
	"tinygo.org/x/drivers/ws2812"

	"alertmap-go/services/render"
	"alertmap-go/services/watchdog"
	"alertmap-go/types"
)

// Open configures the RP2 peripherals wired on p.
func Open(p types.BoardProfile, log zerolog.Logger) (*Board, error) {
	log = log.With().Str("svc", "platform").Logger()
	b := &Board{
		Output:  &render.Output{Log: log},
		Restart: watchdog.Reset,
	}

	b.Output.Main = newStrip(p.MainPin, p.MainPixels)
	b.Output.Background = newStrip(p.BgPin, p.BgPixels)
	b.Output.Service = newStrip(p.ServicePin, p.ServicePixels)

	if p.HasAlertPin() {
		b.AlertPin = newOutPin(p.AlertPin)
	}
	if p.HasClearPin() {
		b.ClearPin = newOutPin(p.ClearPin)
	}
	for _, n := range p.ButtonPins {
		if n < 0 {
			continue
		}
		pin := machine.Pin(n)
		pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
		b.Buttons = append(b.Buttons, irqPin{p: pin})
	}

	if p.SDAPin >= 0 && p.SCLPin >= 0 && (p.LightSensor || p.ClimateSensor) {
		bus := machine.I2C0
		if err := bus.Configure(machine.I2CConfig{
			Frequency: 400 * machine.KHz,
			SDA:       machine.Pin(p.SDAPin),
			SCL:       machine.Pin(p.SCLPin),
		}); err != nil {
			log.Warn().Err(err).Msg("i2c0 configure failed")
		} else {
			b.I2C = bus
		}
	}
	if p.Display {
		b.Display = LogDisplay{Log: log}
	}

	b.Watchdog = watchdog.NewHardware(WatchdogTimeoutMs)
	log.Info().Str("board", p.ID).Int("buttons", len(b.Buttons)).Msg("peripherals ready")
	return b, nil
}

// ---- LED strips ----

type ledStrip struct {
	dev ws2812.Device
	buf []color.RGBA
}

func newStrip(pin, n int) render.Strip {
	if pin < 0 || n <= 0 {
		return nil
	}
	p := machine.Pin(pin)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &ledStrip{dev: ws2812.New(p), buf: make([]color.RGBA, n)}
}

func (s *ledStrip) WritePixels(px []render.RGB) error {
	n := len(px)
	if n > len(s.buf) {
		n = len(s.buf)
	}
	for i := 0; i < n; i++ {
		s.buf[i] = color.RGBA{R: px[i].R, G: px[i].G, B: px[i].B, A: 255}
	}
	return s.dev.WriteColors(s.buf[:n])
}

// ---- GPIO ----

type outPin struct{ p machine.Pin }

func newOutPin(n int) outPin {
	p := machine.Pin(n)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Low()
	return outPin{p: p}
}

func (o outPin) Set(high bool) { o.p.Set(high) }

type irqPin struct{ p machine.Pin }

func (r irqPin) Get() bool { return r.p.Get() }

func (r irqPin) SetIRQ(handler func()) error {
	return r.p.SetInterrupt(machine.PinToggle, func(machine.Pin) { handler() })
}

func (r irqPin) ClearIRQ() error {
	var zero machine.PinChange
	return r.p.SetInterrupt(zero, nil)
}
