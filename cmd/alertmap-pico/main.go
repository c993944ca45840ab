//go:build rp2040 || rp2350

// Command alertmap-pico runs the appliance on an RP2 board. Settings live in
// RAM; a reboot restores the compiled-in defaults.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"alertmap-go/bus"
	"alertmap-go/services/app"
	"alertmap-go/services/config"
	"alertmap-go/services/platform"
	"alertmap-go/services/settings"
)

var version = "4.2"

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(3 * time.Second)
	log := zerolog.New(os.Stdout).Level(zerolog.InfoLevel)
	ctx := context.Background()

	b := bus.NewBus(16)
	store := settings.New(settings.NewMemory(),
		settings.WithBus(b.NewConnection("settings")),
		settings.WithLogger(log))
	_ = store.Load(ctx)
	chipID, _ := store.EnsureChipID("")

	profile, err := config.NewConfigService("", log).
		Publish(context.WithValue(ctx, config.CtxDeviceKey, "pico"), b.NewConnection("config"))
	if err != nil {
		log.Error().Err(err).Msg("no board profile")
		return
	}
	hw, err := platform.Open(profile, log)
	if err != nil {
		log.Error().Err(err).Msg("platform open failed")
		return
	}

	a := app.New(app.Deps{
		Bus:      b,
		Store:    store,
		Profile:  profile,
		Log:      log,
		Firmware: version,
		ChipID:   chipID,
		Output:   hw.Output,
		Display:  hw.Display,
		I2C:      hw.I2C,
		AlertPin: hw.AlertPin,
		ClearPin: hw.ClearPin,
		Buttons:  hw.Buttons,
		Watchdog: hw.Watchdog,
		Restart:  hw.Restart,
	})
	log.Info().Str("version", version).Str("board", profile.ID).Msg("running")
	_ = a.Run(ctx)
}
